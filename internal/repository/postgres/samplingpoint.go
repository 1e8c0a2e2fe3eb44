package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgayle/waterwatch/internal/models"
)

type SamplingPointStore struct {
	pool *pgxpool.Pool
}

func NewSamplingPointStore(pool *pgxpool.Pool) *SamplingPointStore {
	return &SamplingPointStore{pool: pool}
}

func (s *SamplingPointStore) Create(ctx context.Context, p *models.SamplingPoint) error {
	query := `
		INSERT INTO sampling_points (id, supply_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, query, p.ID, p.SupplyID, p.Name, p.Description).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sampling point: %w", err)
	}
	return nil
}

func (s *SamplingPointStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SamplingPoint, error) {
	query := `
		SELECT id, supply_id, name, description, created_at
		FROM sampling_points
		WHERE id = $1`

	var p models.SamplingPoint
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SupplyID, &p.Name, &p.Description, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sampling point: %w", err)
	}
	return &p, nil
}

func (s *SamplingPointStore) ListBySupply(ctx context.Context, supplyID uuid.UUID) ([]models.SamplingPoint, error) {
	query := `
		SELECT id, supply_id, name, description, created_at
		FROM sampling_points
		WHERE supply_id = $1
		ORDER BY name`

	rows, err := s.pool.Query(ctx, query, supplyID)
	if err != nil {
		return nil, fmt.Errorf("list sampling points: %w", err)
	}
	defer rows.Close()

	points := make([]models.SamplingPoint, 0)
	for rows.Next() {
		var p models.SamplingPoint
		if err := rows.Scan(&p.ID, &p.SupplyID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sampling point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampling points: %w", err)
	}

	return points, nil
}
