package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

type fakeSupplies struct {
	supplies []models.Supply
	err      error
}

func (f *fakeSupplies) Create(context.Context, *models.Supply) error { return nil }
func (f *fakeSupplies) Update(context.Context, *models.Supply) error { return nil }
func (f *fakeSupplies) Count(context.Context) (int, error)           { return len(f.supplies), nil }

func (f *fakeSupplies) GetByID(_ context.Context, sc scope.Scope, id uuid.UUID) (*models.Supply, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.supplies {
		if s.ID == id && sc.CanAccessParish(s.Parish) {
			sup := s
			return &sup, nil
		}
	}
	return nil, nil
}

func (f *fakeSupplies) List(_ context.Context, sc scope.Scope) ([]models.Supply, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Supply, 0)
	for _, s := range f.supplies {
		if sc.CanAccessParish(s.Parish) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeLedger struct {
	supplies *fakeSupplies
	subs     []models.Submission
	err      error
}

func (f *fakeLedger) Append(context.Context, *models.Submission) (*models.SubmissionDetail, error) {
	return nil, nil
}
func (f *fakeLedger) GetByID(context.Context, int64) (*models.SubmissionDetail, error) {
	return nil, nil
}
func (f *fakeLedger) ListByInspector(context.Context, uuid.UUID, int) ([]models.SubmissionDetail, error) {
	return nil, nil
}
func (f *fakeLedger) ListBySupply(context.Context, scope.Scope, uuid.UUID, int) ([]models.SubmissionDetail, error) {
	return nil, nil
}
func (f *fakeLedger) CorrectBacteriological(context.Context, int64, int, int) (*models.SubmissionDetail, error) {
	return nil, nil
}

func (f *fakeLedger) ScanMonth(_ context.Context, sc scope.Scope, supplyID *uuid.UUID, month, year int) ([]models.Submission, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Submission, 0)
	for _, sub := range f.subs {
		if int(sub.SubmissionDate.Month()) != month || sub.SubmissionDate.Year() != year {
			continue
		}
		if supplyID != nil && sub.SupplyID != *supplyID {
			continue
		}
		visible := false
		for _, s := range f.supplies.supplies {
			if s.ID == sub.SupplyID && sc.CanAccessParish(s.Parish) {
				visible = true
				break
			}
		}
		if visible {
			out = append(out, sub)
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testFixture() (*fakeSupplies, *fakeLedger, models.Supply, models.Supply) {
	roaring := models.Supply{
		ID: uuid.New(), Name: "Roaring River", Kind: models.SupplyTreated,
		Agency: "NWC", Parish: "Westmoreland",
	}
	marthaBrae := models.Supply{
		ID: uuid.New(), Name: "Martha Brae", Kind: models.SupplyUntreated,
		Agency: "PC", Parish: "Trelawny",
	}
	supplies := &fakeSupplies{supplies: []models.Supply{roaring, marthaBrae}}
	ledger := &fakeLedger{supplies: supplies}
	return supplies, ledger, roaring, marthaBrae
}

func admin() scope.Scope {
	return scope.Scope{UserID: uuid.New(), Role: models.RoleAdmin}
}

func inspector(parish string) scope.Scope {
	return scope.Scope{UserID: uuid.New(), Role: models.RoleInspector, Parish: parish}
}

func TestRollupSumsExactly(t *testing.T) {
	supplies, ledger, roaring, _ := testFixture()
	ledger.subs = []models.Submission{
		{
			ID: 1, SupplyID: roaring.ID, SubmissionDate: day(2026, time.March, 3),
			Counts:    models.Counts{Visits: 2, ChlorineTotal: 5},
			CreatedAt: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			ID: 2, SupplyID: roaring.ID, SubmissionDate: day(2026, time.March, 20),
			Counts:    models.Counts{Visits: 1, ChlorineTotal: 3},
			CreatedAt: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		},
	}
	agg := New(supplies, ledger, zap.NewNop())

	rows, err := agg.Rollup(context.Background(), admin(), nil, 3, 2026, false)
	require.NoError(t, err)

	row := rows[roaring.ID]
	require.NotNil(t, row)
	assert.Equal(t, 3, row.Visits)
	assert.Equal(t, 8, row.ChlorineTotal)
	require.NotNil(t, row.LastUpdated)
	assert.Equal(t, time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC), *row.LastUpdated)
}

func TestRollupMonthIsolation(t *testing.T) {
	supplies, ledger, roaring, _ := testFixture()
	ledger.subs = []models.Submission{
		{
			ID: 1, SupplyID: roaring.ID, SubmissionDate: day(2026, time.March, 31),
			Counts: models.Counts{Visits: 7},
		},
		{
			ID: 2, SupplyID: roaring.ID, SubmissionDate: day(2026, time.April, 1),
			Counts: models.Counts{Visits: 11},
		},
	}
	agg := New(supplies, ledger, zap.NewNop())

	march, err := agg.Rollup(context.Background(), admin(), nil, 3, 2026, false)
	require.NoError(t, err)
	assert.Equal(t, 7, march[roaring.ID].Visits)

	april, err := agg.Rollup(context.Background(), admin(), nil, 4, 2026, false)
	require.NoError(t, err)
	assert.Equal(t, 11, april[roaring.ID].Visits)
}

func TestRollupZeroSubmissionSuppliesPresent(t *testing.T) {
	supplies, ledger, roaring, marthaBrae := testFixture()
	agg := New(supplies, ledger, zap.NewNop())

	rows, err := agg.Rollup(context.Background(), admin(), nil, 6, 2026, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, id := range []uuid.UUID{roaring.ID, marthaBrae.ID} {
		row := rows[id]
		require.NotNil(t, row)
		assert.Equal(t, models.Counts{}, row.Counts)
		assert.Nil(t, row.LastUpdated)
	}
}

func TestRollupIdempotent(t *testing.T) {
	supplies, ledger, roaring, _ := testFixture()
	ledger.subs = []models.Submission{
		{ID: 1, SupplyID: roaring.ID, SubmissionDate: day(2026, time.May, 5),
			Counts: models.Counts{BacteriologicalPending: 4}},
	}
	agg := New(supplies, ledger, zap.NewNop())

	first, err := agg.Rollup(context.Background(), admin(), nil, 5, 2026, true)
	require.NoError(t, err)
	second, err := agg.Rollup(context.Background(), admin(), nil, 5, 2026, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRollupScopeFilters(t *testing.T) {
	supplies, ledger, roaring, marthaBrae := testFixture()
	agg := New(supplies, ledger, zap.NewNop())

	rows, err := agg.Rollup(context.Background(), inspector("Westmoreland"), nil, 6, 2026, false)
	require.NoError(t, err)
	assert.Contains(t, rows, roaring.ID)
	assert.NotContains(t, rows, marthaBrae.ID)
}

func TestRollupUnknownSupplyIsNotFound(t *testing.T) {
	supplies, ledger, _, marthaBrae := testFixture()
	agg := New(supplies, ledger, zap.NewNop())

	missing := uuid.New()
	_, err := agg.Rollup(context.Background(), admin(), &missing, 6, 2026, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Out of scope reads the same as absent.
	_, err = agg.Rollup(context.Background(), inspector("Westmoreland"), &marthaBrae.ID, 6, 2026, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRollupLedgerFailureIsUnavailable(t *testing.T) {
	supplies, ledger, _, _ := testFixture()
	ledger.err = errors.New("connection refused")
	agg := New(supplies, ledger, zap.NewNop())

	rows, err := agg.Rollup(context.Background(), admin(), nil, 6, 2026, false)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestRollupRejectsBadPeriod(t *testing.T) {
	supplies, ledger, _, _ := testFixture()
	agg := New(supplies, ledger, zap.NewNop())

	_, err := agg.Rollup(context.Background(), admin(), nil, 0, 2026, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = agg.Rollup(context.Background(), admin(), nil, 13, 2026, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = agg.Rollup(context.Background(), admin(), nil, 6, 1850, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRollupRemarksConcatenation(t *testing.T) {
	supplies, ledger, roaring, _ := testFixture()
	ledger.subs = []models.Submission{
		{ID: 1, SupplyID: roaring.ID, SubmissionDate: day(2026, time.July, 1), Remarks: "low pressure"},
		{ID: 2, SupplyID: roaring.ID, SubmissionDate: day(2026, time.July, 8), Remarks: "   "},
		{ID: 3, SupplyID: roaring.ID, SubmissionDate: day(2026, time.July, 15), Remarks: "resampled"},
	}
	agg := New(supplies, ledger, zap.NewNop())

	withRemarks, err := agg.Rollup(context.Background(), admin(), nil, 7, 2026, true)
	require.NoError(t, err)
	assert.Equal(t, "low pressure; resampled", withRemarks[roaring.ID].Remarks)

	// Live dashboards skip the concatenation entirely.
	without, err := agg.Rollup(context.Background(), admin(), nil, 7, 2026, false)
	require.NoError(t, err)
	assert.Empty(t, without[roaring.ID].Remarks)
}

func TestSortRowsOrder(t *testing.T) {
	rows := map[uuid.UUID]*models.RollupRow{}
	add := func(name string, kind models.SupplyKind, agency string) {
		id := uuid.New()
		rows[id] = &models.RollupRow{SupplyID: id, SupplyName: name, Kind: kind, Agency: agency}
	}
	add("Martha Brae", models.SupplyUntreated, "PC")
	add("Duncans", models.SupplyTreated, "NWC")
	add("Albert Town", models.SupplyTreated, "PC")
	add("Bounty Hall", models.SupplyTreated, "NWC")

	sorted := SortRows(rows)
	names := make([]string, 0, len(sorted))
	for _, r := range sorted {
		names = append(names, r.SupplyName)
	}
	assert.Equal(t, []string{"Bounty Hall", "Duncans", "Albert Town", "Martha Brae"}, names)
}
