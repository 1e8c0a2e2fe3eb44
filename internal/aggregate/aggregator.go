// Package aggregate computes monthly rollups. A rollup is a pure read-side
// fold over the submission ledger: no state of its own, no locks across
// rows, always exactly reproducible by re-summing.
package aggregate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/observ"
	"github.com/rgayle/waterwatch/internal/repository"
	"github.com/rgayle/waterwatch/internal/scope"
)

type Aggregator struct {
	supplies repository.SupplyRepository
	ledger   repository.SubmissionRepository
	logger   *zap.Logger
}

func New(supplies repository.SupplyRepository, ledger repository.SubmissionRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		supplies: supplies,
		ledger:   ledger,
		logger:   logger,
	}
}

// Current computes the live-dashboard rollup: the caller's wall-clock month,
// all supplies in scope, no remarks concatenation.
func (a *Aggregator) Current(ctx context.Context, sc scope.Scope, now time.Time) (map[uuid.UUID]*models.RollupRow, error) {
	return a.Rollup(ctx, sc, nil, int(now.Month()), now.Year(), false)
}

// Rollup folds every ledger submission matching (scope, supplyID?, month,
// year) into per-supply sums.
//
// Every supply visible to the caller appears in the result; a supply with
// no submissions that month gets an all-zero row with a nil LastUpdated.
// Absence from the map means only one thing: the supply is outside the
// caller's scope.
//
// Counts are exact integer sums. LastUpdated is the max created_at among
// contributing rows. withRemarks additionally builds the report-only
// "; "-joined concatenation of non-empty remarks, in ledger order.
//
// Failures are distinguishable from empty results: an unknown or
// out-of-scope supplyID is ErrNotFound, an unreachable ledger is
// ErrUnavailable. Callers must never read an error as "zero counts".
func (a *Aggregator) Rollup(ctx context.Context, sc scope.Scope, supplyID *uuid.UUID, month, year int, withRemarks bool) (map[uuid.UUID]*models.RollupRow, error) {
	if month < 1 || month > 12 {
		return nil, apperr.Validationf("month %d out of range", month)
	}
	if year < 1900 || year > 9999 {
		return nil, apperr.Validationf("year %d out of range", year)
	}

	timer := time.Now()
	defer func() {
		observ.RollupDuration.Observe(time.Since(timer).Seconds())
	}()

	var supplies []models.Supply
	if supplyID != nil {
		sup, err := a.supplies.GetByID(ctx, sc, *supplyID)
		if err != nil {
			return nil, apperr.Unavailable("resolve supply", err)
		}
		if sup == nil {
			return nil, apperr.NotFoundf("supply %s", *supplyID)
		}
		supplies = []models.Supply{*sup}
	} else {
		var err error
		supplies, err = a.supplies.List(ctx, sc)
		if err != nil {
			return nil, apperr.Unavailable("list supplies", err)
		}
	}

	rows := make(map[uuid.UUID]*models.RollupRow, len(supplies))
	for _, sup := range supplies {
		rows[sup.ID] = &models.RollupRow{
			SupplyID:   sup.ID,
			SupplyName: sup.Name,
			Kind:       sup.Kind,
			Agency:     sup.Agency,
			Parish:     sup.Parish,
		}
	}

	subs, err := a.ledger.ScanMonth(ctx, sc, supplyID, month, year)
	if err != nil {
		return nil, apperr.Unavailable("scan ledger", err)
	}

	var remarks map[uuid.UUID][]string
	if withRemarks {
		remarks = make(map[uuid.UUID][]string)
	}

	for _, sub := range subs {
		row, ok := rows[sub.SupplyID]
		if !ok {
			// The scan join already applies the scope filter; a row we did
			// not seed a supply for would mean catalog/ledger drift.
			a.logger.Warn("ledger row for supply missing from catalog scan",
				zap.Int64("submission_id", sub.ID),
				zap.String("supply_id", sub.SupplyID.String()),
			)
			continue
		}
		row.Counts.Add(sub.Counts)
		if row.LastUpdated == nil || sub.CreatedAt.After(*row.LastUpdated) {
			t := sub.CreatedAt
			row.LastUpdated = &t
		}
		if withRemarks && strings.TrimSpace(sub.Remarks) != "" {
			remarks[sub.SupplyID] = append(remarks[sub.SupplyID], sub.Remarks)
		}
	}

	if withRemarks {
		for id, parts := range remarks {
			rows[id].Remarks = strings.Join(parts, "; ")
		}
	}

	return rows, nil
}

// SortRows orders rollup rows by (kind, agency, name), the deterministic
// order every list rendering of a rollup uses.
func SortRows(rows map[uuid.UUID]*models.RollupRow) []models.RollupRow {
	out := make([]models.RollupRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Agency != b.Agency {
			return a.Agency < b.Agency
		}
		return a.SupplyName < b.SupplyName
	})
	return out
}
