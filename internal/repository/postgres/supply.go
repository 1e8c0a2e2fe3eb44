package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

type SupplyStore struct {
	pool *pgxpool.Pool
}

func NewSupplyStore(pool *pgxpool.Pool) *SupplyStore {
	return &SupplyStore{pool: pool}
}

func (s *SupplyStore) Create(ctx context.Context, sup *models.Supply) error {
	query := `
		INSERT INTO supplies (id, name, kind, agency, location, parish, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`

	if sup.ID == uuid.Nil {
		sup.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, query,
		sup.ID, sup.Name, sup.Kind, sup.Agency, sup.Location, sup.Parish,
	).Scan(&sup.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert supply: %w", err)
	}
	return nil
}

func (s *SupplyStore) Update(ctx context.Context, sup *models.Supply) error {
	query := `
		UPDATE supplies
		SET name = $2, kind = $3, agency = $4, location = $5, parish = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		sup.ID, sup.Name, sup.Kind, sup.Agency, sup.Location, sup.Parish,
	)
	if err != nil {
		return fmt.Errorf("update supply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("supply %s", sup.ID)
	}
	return nil
}

// GetByID applies the parish filter inside the query: a supply outside the
// caller's scope scans as no rows, same as one that does not exist.
func (s *SupplyStore) GetByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Supply, error) {
	query := `
		SELECT id, name, kind, agency, location, parish, created_at
		FROM supplies
		WHERE id = $1 AND ($2 OR parish = $3)`

	var sup models.Supply
	err := s.pool.QueryRow(ctx, query, id, sc.IsAdmin(), sc.Parish).Scan(
		&sup.ID, &sup.Name, &sup.Kind, &sup.Agency, &sup.Location, &sup.Parish, &sup.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supply: %w", err)
	}
	return &sup, nil
}

func (s *SupplyStore) List(ctx context.Context, sc scope.Scope) ([]models.Supply, error) {
	query := `
		SELECT id, name, kind, agency, location, parish, created_at
		FROM supplies
		WHERE ($1 OR parish = $2)
		ORDER BY kind, agency, name`

	rows, err := s.pool.Query(ctx, query, sc.IsAdmin(), sc.Parish)
	if err != nil {
		return nil, fmt.Errorf("list supplies: %w", err)
	}
	defer rows.Close()

	supplies := make([]models.Supply, 0)
	for rows.Next() {
		var sup models.Supply
		if err := rows.Scan(
			&sup.ID, &sup.Name, &sup.Kind, &sup.Agency, &sup.Location, &sup.Parish, &sup.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan supply: %w", err)
		}
		supplies = append(supplies, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supplies: %w", err)
	}

	return supplies, nil
}

func (s *SupplyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM supplies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count supplies: %w", err)
	}
	return n, nil
}
