package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/models"
)

type SamplingPointStore struct {
	db *sql.DB
}

func NewSamplingPointStore(db *sql.DB) *SamplingPointStore {
	return &SamplingPointStore{db: db}
}

func (s *SamplingPointStore) Create(ctx context.Context, p *models.SamplingPoint) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sampling_points (id, supply_id, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(), p.SupplyID.String(), p.Name, p.Description, encodeTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sampling point: %w", err)
	}
	return nil
}

func (s *SamplingPointStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SamplingPoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, supply_id, name, description, created_at
		FROM sampling_points
		WHERE id = ?`, id.String())

	p, err := scanSamplingPoint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sampling point: %w", err)
	}
	return p, nil
}

func (s *SamplingPointStore) ListBySupply(ctx context.Context, supplyID uuid.UUID) ([]models.SamplingPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supply_id, name, description, created_at
		FROM sampling_points
		WHERE supply_id = ?
		ORDER BY name`, supplyID.String())
	if err != nil {
		return nil, fmt.Errorf("list sampling points: %w", err)
	}
	defer rows.Close()

	points := make([]models.SamplingPoint, 0)
	for rows.Next() {
		p, err := scanSamplingPoint(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sampling point: %w", err)
		}
		points = append(points, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampling points: %w", err)
	}
	return points, nil
}

func scanSamplingPoint(scan func(dest ...any) error) (*models.SamplingPoint, error) {
	var p models.SamplingPoint
	var id, supplyID, createdAt string
	if err := scan(&id, &supplyID, &p.Name, &p.Description, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if p.ID, err = decodeUUID(id); err != nil {
		return nil, err
	}
	if p.SupplyID, err = decodeUUID(supplyID); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}
