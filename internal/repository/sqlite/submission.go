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

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

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

func scanDetail(scan func(dest ...any) error) (*models.SubmissionDetail, error) {
	var d models.SubmissionDetail
	var supplyID, inspectorID, subDate, createdAt, kind string
	var spID sql.NullString
	err := scan(
		&d.ID, &supplyID, &spID, &inspectorID, &subDate,
		&d.Visits,
		&d.ChlorineTotal, &d.ChlorinePositive, &d.ChlorineNegative,
		&d.BacteriologicalPositive, &d.BacteriologicalNegative, &d.BacteriologicalPending,
		&d.BacteriologicalRejected, &d.BacteriologicalBroken,
		&d.PHSatisfactory, &d.PHNonSatisfactory,
		&d.ChemicalSatisfactory, &d.ChemicalNonSatisfactory,
		&d.TurbiditySatisfactory, &d.TurbidityNonSatisfactory,
		&d.TemperatureSatisfactory, &d.TemperatureNonSatisfactory,
		&d.Remarks, &d.ChemicalNonSatisfactoryParams, &d.PHNonSatisfactoryParams,
		&createdAt,
		&d.SupplyName, &kind, &d.Agency, &d.Parish,
		&d.InspectorName,
		&d.SamplingPointName,
	)
	if err != nil {
		return nil, err
	}
	if d.SupplyID, err = decodeUUID(supplyID); err != nil {
		return nil, err
	}
	if d.SamplingPointID, err = decodeUUIDPtr(spID); err != nil {
		return nil, err
	}
	if d.InspectorID, err = decodeUUID(inspectorID); err != nil {
		return nil, err
	}
	if d.SubmissionDate, err = decodeDate(subDate); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	d.SupplyKind = models.SupplyKind(kind)
	return &d, nil
}

func (s *SubmissionStore) Append(ctx context.Context, sub *models.Submission) (*models.SubmissionDetail, error) {
	sub.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (supply_id, sampling_point_id, inspector_id, submission_date,
			visits,
			chlorine_total, chlorine_positive, chlorine_negative,
			bacteriological_positive, bacteriological_negative, bacteriological_pending,
			bacteriological_rejected, bacteriological_broken,
			ph_satisfactory, ph_non_satisfactory,
			chemical_satisfactory, chemical_non_satisfactory,
			turbidity_satisfactory, turbidity_non_satisfactory,
			temperature_satisfactory, temperature_non_satisfactory,
			remarks, chemical_non_satisfactory_params, ph_non_satisfactory_params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.SupplyID.String(), encodeUUIDPtr(sub.SamplingPointID), sub.InspectorID.String(),
		encodeDate(sub.SubmissionDate),
		sub.Visits,
		sub.ChlorineTotal, sub.ChlorinePositive, sub.ChlorineNegative,
		sub.BacteriologicalPositive, sub.BacteriologicalNegative, sub.BacteriologicalPending,
		sub.BacteriologicalRejected, sub.BacteriologicalBroken,
		sub.PHSatisfactory, sub.PHNonSatisfactory,
		sub.ChemicalSatisfactory, sub.ChemicalNonSatisfactory,
		sub.TurbiditySatisfactory, sub.TurbidityNonSatisfactory,
		sub.TemperatureSatisfactory, sub.TemperatureNonSatisfactory,
		sub.Remarks, sub.ChemicalNonSatisfactoryParams, sub.PHNonSatisfactoryParams,
		encodeTime(sub.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	sub.ID = id

	return s.GetByID(ctx, id)
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (*models.SubmissionDetail, error) {
	row := s.db.QueryRowContext(ctx, detailSelect+` WHERE s.id = ?`, id)
	detail, err := scanDetail(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return detail, nil
}

func (s *SubmissionStore) ListByInspector(ctx context.Context, inspectorID uuid.UUID, limit int) ([]models.SubmissionDetail, error) {
	query := detailSelect + `
	WHERE s.inspector_id = ?
	ORDER BY s.created_at DESC
	LIMIT ?`
	return s.queryDetails(ctx, query, inspectorID.String(), limit)
}

func (s *SubmissionStore) ListBySupply(ctx context.Context, sc scope.Scope, supplyID uuid.UUID, limit int) ([]models.SubmissionDetail, error) {
	query := detailSelect + `
	WHERE s.supply_id = ? AND (? OR ws.parish = ?)
	ORDER BY s.created_at DESC
	LIMIT ?`
	return s.queryDetails(ctx, query, supplyID.String(), sc.IsAdmin(), sc.Parish, limit)
}

func (s *SubmissionStore) queryDetails(ctx context.Context, query string, args ...any) ([]models.SubmissionDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	details := make([]models.SubmissionDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
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

func (s *SubmissionStore) ScanMonth(ctx context.Context, sc scope.Scope, supplyID *uuid.UUID, month, year int) ([]models.Submission, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx, `
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
		WHERE s.submission_date >= ? AND s.submission_date < ?
			AND (? OR ws.parish = ?)
			AND (? OR s.supply_id = ?)
		ORDER BY s.id`,
		encodeDate(from), encodeDate(to),
		sc.IsAdmin(), sc.Parish,
		supplyID == nil, encodeUUIDPtr(supplyID),
	)
	if err != nil {
		return nil, fmt.Errorf("scan month: %w", err)
	}
	defer rows.Close()

	subs := make([]models.Submission, 0)
	for rows.Next() {
		var sub models.Submission
		var supID, inspectorID, subDate, createdAt string
		var spID sql.NullString
		if err := rows.Scan(
			&sub.ID, &supID, &spID, &inspectorID, &subDate,
			&sub.Visits,
			&sub.ChlorineTotal, &sub.ChlorinePositive, &sub.ChlorineNegative,
			&sub.BacteriologicalPositive, &sub.BacteriologicalNegative, &sub.BacteriologicalPending,
			&sub.BacteriologicalRejected, &sub.BacteriologicalBroken,
			&sub.PHSatisfactory, &sub.PHNonSatisfactory,
			&sub.ChemicalSatisfactory, &sub.ChemicalNonSatisfactory,
			&sub.TurbiditySatisfactory, &sub.TurbidityNonSatisfactory,
			&sub.TemperatureSatisfactory, &sub.TemperatureNonSatisfactory,
			&sub.Remarks, &sub.ChemicalNonSatisfactoryParams, &sub.PHNonSatisfactoryParams,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		if sub.SupplyID, err = decodeUUID(supID); err != nil {
			return nil, err
		}
		if sub.SamplingPointID, err = decodeUUIDPtr(spID); err != nil {
			return nil, err
		}
		if sub.InspectorID, err = decodeUUID(inspectorID); err != nil {
			return nil, err
		}
		if sub.SubmissionDate, err = decodeDate(subDate); err != nil {
			return nil, err
		}
		if sub.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return subs, nil
}

// CorrectBacteriological uses the same compare-and-swap shape as the
// postgres store: the pending guard lives in the UPDATE itself, so the
// constraint is checked against the value being overwritten.
func (s *SubmissionStore) CorrectBacteriological(ctx context.Context, id int64, positiveAdd, negativeAdd int) (*models.SubmissionDetail, error) {
	if positiveAdd < 0 || negativeAdd < 0 {
		return nil, apperr.Validationf("correction deltas must be non-negative")
	}
	if positiveAdd+negativeAdd == 0 {
		return nil, apperr.Validationf("correction must move at least one result")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET bacteriological_positive = bacteriological_positive + ?,
			bacteriological_negative = bacteriological_negative + ?,
			bacteriological_pending = bacteriological_pending - ? - ?
		WHERE id = ? AND bacteriological_pending >= ? + ?`,
		positiveAdd, negativeAdd, positiveAdd, negativeAdd,
		id, positiveAdd, negativeAdd,
	)
	if err != nil {
		return nil, fmt.Errorf("correct submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("correct submission: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM submissions WHERE id = ?)`, id,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check submission: %w", err)
		}
		if !exists {
			return nil, apperr.NotFoundf("submission %d", id)
		}
		return nil, apperr.Validationf(
			"correction of +%d/+%d exceeds pending results", positiveAdd, negativeAdd)
	}

	return s.GetByID(ctx, id)
}
