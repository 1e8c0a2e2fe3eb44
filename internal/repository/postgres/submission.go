package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

// countCols is the fixed count-field column list, in struct order. Kept in
// one place so the insert, the detail select and the scan stay aligned.
const countCols = `visits,
	chlorine_total, chlorine_positive, chlorine_negative,
	bacteriological_positive, bacteriological_negative, bacteriological_pending,
	bacteriological_rejected, bacteriological_broken,
	ph_satisfactory, ph_non_satisfactory,
	chemical_satisfactory, chemical_non_satisfactory,
	turbidity_satisfactory, turbidity_non_satisfactory,
	temperature_satisfactory, temperature_non_satisfactory`

const detailSelect = `
	SELECT s.id, s.supply_id, s.sampling_point_id, s.inspector_id, s.submission_date,
		s.visits,
		s.chlorine_total, s.chlorine_positive, s.chlorine_negative,
		s.bacteriological_positive, s.bacteriological_negative, s.bacteriological_pending,
		s.bacteriological_rejected, s.bacteriological_broken,
		s.ph_satisfactory, s.ph_non_satisfactory,
		s.chemical_satisfactory, s.chemical_non_satisfactory,
		s.turbidity_satisfactory, s.turbidity_non_satisfactory,
		s.temperature_satisfactory, s.temperature_non_satisfactory,
		s.remarks, s.chemical_non_satisfactory_params, s.ph_non_satisfactory_params,
		s.created_at,
		ws.name, ws.kind, ws.agency, ws.parish,
		u.full_name,
		COALESCE(sp.name, '')
	FROM submissions s
	JOIN supplies ws ON ws.id = s.supply_id
	JOIN users u ON u.id = s.inspector_id
	LEFT JOIN sampling_points sp ON sp.id = s.sampling_point_id`

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDetail(row scanner) (*models.SubmissionDetail, error) {
	var d models.SubmissionDetail
	err := row.Scan(
		&d.ID, &d.SupplyID, &d.SamplingPointID, &d.InspectorID, &d.SubmissionDate,
		&d.Visits,
		&d.ChlorineTotal, &d.ChlorinePositive, &d.ChlorineNegative,
		&d.BacteriologicalPositive, &d.BacteriologicalNegative, &d.BacteriologicalPending,
		&d.BacteriologicalRejected, &d.BacteriologicalBroken,
		&d.PHSatisfactory, &d.PHNonSatisfactory,
		&d.ChemicalSatisfactory, &d.ChemicalNonSatisfactory,
		&d.TurbiditySatisfactory, &d.TurbidityNonSatisfactory,
		&d.TemperatureSatisfactory, &d.TemperatureNonSatisfactory,
		&d.Remarks, &d.ChemicalNonSatisfactoryParams, &d.PHNonSatisfactoryParams,
		&d.CreatedAt,
		&d.SupplyName, &d.SupplyKind, &d.Agency, &d.Parish,
		&d.InspectorName,
		&d.SamplingPointName,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Append inserts the row and reads it back joined with display attributes in
// one statement, so the returned detail reflects exactly what committed.
func (s *SubmissionStore) Append(ctx context.Context, sub *models.Submission) (*models.SubmissionDetail, error) {
	query := `
	WITH ins AS (
		INSERT INTO submissions (supply_id, sampling_point_id, inspector_id, submission_date,
			` + countCols + `,
			remarks, chemical_non_satisfactory_params, ph_non_satisfactory_params, created_at)
		VALUES ($1, $2, $3, $4,
			$5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15,
			$16, $17,
			$18, $19,
			$20, $21,
			$22, $23, $24, now())
		RETURNING *
	)` + strings.Replace(detailSelect, "FROM submissions s", "FROM ins s", 1)

	row := s.pool.QueryRow(ctx, query,
		sub.SupplyID, sub.SamplingPointID, sub.InspectorID, sub.SubmissionDate,
		sub.Visits,
		sub.ChlorineTotal, sub.ChlorinePositive, sub.ChlorineNegative,
		sub.BacteriologicalPositive, sub.BacteriologicalNegative, sub.BacteriologicalPending,
		sub.BacteriologicalRejected, sub.BacteriologicalBroken,
		sub.PHSatisfactory, sub.PHNonSatisfactory,
		sub.ChemicalSatisfactory, sub.ChemicalNonSatisfactory,
		sub.TurbiditySatisfactory, sub.TurbidityNonSatisfactory,
		sub.TemperatureSatisfactory, sub.TemperatureNonSatisfactory,
		sub.Remarks, sub.ChemicalNonSatisfactoryParams, sub.PHNonSatisfactoryParams,
	)
	detail, err := scanDetail(row)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return detail, nil
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (*models.SubmissionDetail, error) {
	query := detailSelect + ` WHERE s.id = $1`

	detail, err := scanDetail(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return detail, nil
}

func (s *SubmissionStore) ListByInspector(ctx context.Context, inspectorID uuid.UUID, limit int) ([]models.SubmissionDetail, error) {
	query := detailSelect + `
	WHERE s.inspector_id = $1
	ORDER BY s.created_at DESC
	LIMIT $2`

	return s.queryDetails(ctx, query, inspectorID, limit)
}

func (s *SubmissionStore) ListBySupply(ctx context.Context, sc scope.Scope, supplyID uuid.UUID, limit int) ([]models.SubmissionDetail, error) {
	query := detailSelect + `
	WHERE s.supply_id = $1 AND ($2 OR ws.parish = $3)
	ORDER BY s.created_at DESC
	LIMIT $4`

	return s.queryDetails(ctx, query, supplyID, sc.IsAdmin(), sc.Parish, limit)
}

func (s *SubmissionStore) queryDetails(ctx context.Context, query string, args ...any) ([]models.SubmissionDetail, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	details := make([]models.SubmissionDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		details = append(details, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return details, nil
}

// ScanMonth is the aggregation scan: plain ledger rows, no display join,
// ordered by id so downstream remark concatenation is deterministic.
func (s *SubmissionStore) ScanMonth(ctx context.Context, sc scope.Scope, supplyID *uuid.UUID, month, year int) ([]models.Submission, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	query := `
	SELECT s.id, s.supply_id, s.sampling_point_id, s.inspector_id, s.submission_date,
		s.visits,
		s.chlorine_total, s.chlorine_positive, s.chlorine_negative,
		s.bacteriological_positive, s.bacteriological_negative, s.bacteriological_pending,
		s.bacteriological_rejected, s.bacteriological_broken,
		s.ph_satisfactory, s.ph_non_satisfactory,
		s.chemical_satisfactory, s.chemical_non_satisfactory,
		s.turbidity_satisfactory, s.turbidity_non_satisfactory,
		s.temperature_satisfactory, s.temperature_non_satisfactory,
		s.remarks, s.chemical_non_satisfactory_params, s.ph_non_satisfactory_params,
		s.created_at
	FROM submissions s
	JOIN supplies ws ON ws.id = s.supply_id
	WHERE s.submission_date >= $1 AND s.submission_date < $2
		AND ($3 OR ws.parish = $4)
		AND ($5::uuid IS NULL OR s.supply_id = $5)
	ORDER BY s.id`

	rows, err := s.pool.Query(ctx, query, from, to, sc.IsAdmin(), sc.Parish, supplyID)
	if err != nil {
		return nil, fmt.Errorf("scan month: %w", err)
	}
	defer rows.Close()

	subs := make([]models.Submission, 0)
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(
			&sub.ID, &sub.SupplyID, &sub.SamplingPointID, &sub.InspectorID, &sub.SubmissionDate,
			&sub.Visits,
			&sub.ChlorineTotal, &sub.ChlorinePositive, &sub.ChlorineNegative,
			&sub.BacteriologicalPositive, &sub.BacteriologicalNegative, &sub.BacteriologicalPending,
			&sub.BacteriologicalRejected, &sub.BacteriologicalBroken,
			&sub.PHSatisfactory, &sub.PHNonSatisfactory,
			&sub.ChemicalSatisfactory, &sub.ChemicalNonSatisfactory,
			&sub.TurbiditySatisfactory, &sub.TurbidityNonSatisfactory,
			&sub.TemperatureSatisfactory, &sub.TemperatureNonSatisfactory,
			&sub.Remarks, &sub.ChemicalNonSatisfactoryParams, &sub.PHNonSatisfactoryParams,
			&sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return subs, nil
}

// CorrectBacteriological applies the pending->resolved correction as a
// compare-and-swap: the pending guard sits in the UPDATE's WHERE clause, so
// the constraint is checked against the exact value being overwritten. A
// racing correction that would overdraw the pending pool simply matches no
// row and fails validation; no lost update is possible.
func (s *SubmissionStore) CorrectBacteriological(ctx context.Context, id int64, positiveAdd, negativeAdd int) (*models.SubmissionDetail, error) {
	if positiveAdd < 0 || negativeAdd < 0 {
		return nil, apperr.Validationf("correction deltas must be non-negative")
	}
	if positiveAdd+negativeAdd == 0 {
		return nil, apperr.Validationf("correction must move at least one result")
	}

	query := `
		UPDATE submissions
		SET bacteriological_positive = bacteriological_positive + $2,
			bacteriological_negative = bacteriological_negative + $3,
			bacteriological_pending = bacteriological_pending - $2 - $3
		WHERE id = $1 AND bacteriological_pending >= $2 + $3
		RETURNING id`

	var updated int64
	err := s.pool.QueryRow(ctx, query, id, positiveAdd, negativeAdd).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from a failed constraint.
			var exists bool
			if err := s.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id,
			).Scan(&exists); err != nil {
				return nil, fmt.Errorf("check submission: %w", err)
			}
			if !exists {
				return nil, apperr.NotFoundf("submission %d", id)
			}
			return nil, apperr.Validationf(
				"correction of +%d/+%d exceeds pending results", positiveAdd, negativeAdd)
		}
		return nil, fmt.Errorf("correct submission: %w", err)
	}

	return s.GetByID(ctx, id)
}
