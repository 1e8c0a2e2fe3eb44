package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

type SupplyStore struct {
	db *sql.DB
}

func NewSupplyStore(db *sql.DB) *SupplyStore {
	return &SupplyStore{db: db}
}

func (s *SupplyStore) Create(ctx context.Context, sup *models.Supply) error {
	if sup.ID == uuid.Nil {
		sup.ID = uuid.New()
	}
	sup.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supplies (id, name, kind, agency, location, parish, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sup.ID.String(), sup.Name, string(sup.Kind), sup.Agency, sup.Location, sup.Parish,
		encodeTime(sup.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert supply: %w", err)
	}
	return nil
}

func (s *SupplyStore) Update(ctx context.Context, sup *models.Supply) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE supplies
		SET name = ?, kind = ?, agency = ?, location = ?, parish = ?
		WHERE id = ?`,
		sup.Name, string(sup.Kind), sup.Agency, sup.Location, sup.Parish, sup.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update supply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update supply: %w", err)
	}
	if n == 0 {
		return apperr.NotFoundf("supply %s", sup.ID)
	}
	return nil
}

func (s *SupplyStore) GetByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Supply, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, agency, location, parish, created_at
		FROM supplies
		WHERE id = ? AND (? OR parish = ?)`,
		id.String(), sc.IsAdmin(), sc.Parish)

	sup, err := scanSupply(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supply: %w", err)
	}
	return sup, nil
}

func (s *SupplyStore) List(ctx context.Context, sc scope.Scope) ([]models.Supply, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, agency, location, parish, created_at
		FROM supplies
		WHERE (? OR parish = ?)
		ORDER BY kind, agency, name`,
		sc.IsAdmin(), sc.Parish)
	if err != nil {
		return nil, fmt.Errorf("list supplies: %w", err)
	}
	defer rows.Close()

	supplies := make([]models.Supply, 0)
	for rows.Next() {
		sup, err := scanSupply(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan supply: %w", err)
		}
		supplies = append(supplies, *sup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supplies: %w", err)
	}
	return supplies, nil
}

func scanSupply(scan func(dest ...any) error) (*models.Supply, error) {
	var sup models.Supply
	var id, kind, createdAt string
	if err := scan(&id, &sup.Name, &kind, &sup.Agency, &sup.Location, &sup.Parish, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if sup.ID, err = decodeUUID(id); err != nil {
		return nil, err
	}
	sup.Kind = models.SupplyKind(kind)
	if sup.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *SupplyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM supplies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count supplies: %w", err)
	}
	return n, nil
}
