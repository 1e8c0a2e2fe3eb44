package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/db"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

type fixture struct {
	db          *sql.DB
	users       *UserStore
	supplies    *SupplyStore
	points      *SamplingPointStore
	submissions *SubmissionStore
	tasks       *TaskStore

	inspector models.User
	adminUser models.User
	roaring   models.Supply
	martha    models.Supply
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqldb, err := db.NewSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	f := &fixture{
		db:          sqldb,
		users:       NewUserStore(sqldb),
		supplies:    NewSupplyStore(sqldb),
		points:      NewSamplingPointStore(sqldb),
		submissions: NewSubmissionStore(sqldb),
		tasks:       NewTaskStore(sqldb),
	}

	ctx := context.Background()
	f.inspector = models.User{
		ID: uuid.New(), Username: "inspector", PasswordHash: "x",
		Role: models.RoleInspector, FullName: "Water Quality Inspector",
		Parish: "Westmoreland", CreatedAt: time.Now().UTC(),
	}
	f.adminUser = models.User{
		ID: uuid.New(), Username: "admin", PasswordHash: "x",
		Role: models.RoleAdmin, FullName: "System Administrator",
		Parish: "Westmoreland", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(ctx, &f.inspector))
	require.NoError(t, f.users.Create(ctx, &f.adminUser))

	f.roaring = models.Supply{
		ID: uuid.New(), Name: "Roaring River", Kind: models.SupplyTreated,
		Agency: "NWC", Location: "Savanna-la-Mar", Parish: "Westmoreland",
		CreatedAt: time.Now().UTC(),
	}
	f.martha = models.Supply{
		ID: uuid.New(), Name: "Martha Brae", Kind: models.SupplyUntreated,
		Agency: "PC", Location: "Martha Brae", Parish: "Trelawny",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.supplies.Create(ctx, &f.roaring))
	require.NoError(t, f.supplies.Create(ctx, &f.martha))
	return f
}

func (f *fixture) inspectorScope() scope.Scope {
	return scope.Scope{UserID: f.inspector.ID, Role: models.RoleInspector, Parish: f.inspector.Parish}
}

func (f *fixture) adminScope() scope.Scope {
	return scope.Scope{UserID: f.adminUser.ID, Role: models.RoleAdmin, Parish: f.adminUser.Parish}
}

func (f *fixture) appendSubmission(t *testing.T, supplyID uuid.UUID, day time.Time, counts models.Counts, remarks string) *models.SubmissionDetail {
	t.Helper()
	detail, err := f.submissions.Append(context.Background(), &models.Submission{
		SupplyID:       supplyID,
		InspectorID:    f.inspector.ID,
		SubmissionDate: day,
		Counts:         counts,
		Remarks:        remarks,
	})
	require.NoError(t, err)
	return detail
}

func TestUserLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.GetByUsername(ctx, "inspector")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, f.inspector.ID, u.ID)
	assert.Equal(t, models.RoleInspector, u.Role)

	missing, err := f.users.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := f.users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSupplyScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.supplies.List(ctx, f.adminScope())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.supplies.List(ctx, f.inspectorScope())
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.roaring.ID, own[0].ID)

	// A cross-parish lookup reads as absent, not forbidden.
	got, err := f.supplies.GetByID(ctx, f.inspectorScope(), f.martha.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.supplies.GetByID(ctx, f.adminScope(), f.martha.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Martha Brae", got.Name)
}

func TestSupplyUpdateMissing(t *testing.T) {
	f := newFixture(t)
	err := f.supplies.Update(context.Background(), &models.Supply{
		ID: uuid.New(), Name: "Ghost", Kind: models.SupplyTreated, Agency: "NWC",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmissionAppendAndReadBack(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	detail := f.appendSubmission(t, f.roaring.ID, day,
		models.Counts{Visits: 2, ChlorineTotal: 5, BacteriologicalPending: 4},
		"routine check")

	assert.NotZero(t, detail.ID)
	assert.Equal(t, "Roaring River", detail.SupplyName)
	assert.Equal(t, "Westmoreland", detail.Parish)
	assert.Equal(t, "Water Quality Inspector", detail.InspectorName)
	assert.Equal(t, day, detail.SubmissionDate)
	assert.Equal(t, 2, detail.Visits)

	mine, err := f.submissions.ListByInspector(context.Background(), f.inspector.ID, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, detail.ID, mine[0].ID)
}

func TestScanMonthWindowAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.appendSubmission(t, f.roaring.ID, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		models.Counts{Visits: 1}, "first")
	f.appendSubmission(t, f.roaring.ID, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		models.Counts{Visits: 2}, "second")
	f.appendSubmission(t, f.roaring.ID, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		models.Counts{Visits: 4}, "next month")
	f.appendSubmission(t, f.martha.ID, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		models.Counts{Visits: 8}, "other parish")

	march, err := f.submissions.ScanMonth(ctx, f.adminScope(), nil, 3, 2026)
	require.NoError(t, err)
	require.Len(t, march, 3)
	// Ledger order: id ascending.
	assert.True(t, march[0].ID < march[1].ID && march[1].ID < march[2].ID)

	scoped, err := f.submissions.ScanMonth(ctx, f.inspectorScope(), nil, 3, 2026)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	for _, sub := range scoped {
		assert.Equal(t, f.roaring.ID, sub.SupplyID)
	}

	one, err := f.submissions.ScanMonth(ctx, f.adminScope(), &f.martha.ID, 3, 2026)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 8, one[0].Visits)
}

func TestCorrectBacteriologicalCAS(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	detail := f.appendSubmission(t, f.roaring.ID,
		time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC),
		models.Counts{
			BacteriologicalPending:  5,
			BacteriologicalPositive: 2,
			BacteriologicalNegative: 1,
		}, "")

	// 3+3 exceeds the 5 pending results: refused, state untouched.
	_, err := f.submissions.CorrectBacteriological(ctx, detail.ID, 3, 3)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	unchanged, err := f.submissions.GetByID(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, unchanged.BacteriologicalPending)
	assert.Equal(t, 2, unchanged.BacteriologicalPositive)
	assert.Equal(t, 1, unchanged.BacteriologicalNegative)

	// 2+3 consumes exactly the pending pool.
	corrected, err := f.submissions.CorrectBacteriological(ctx, detail.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, corrected.BacteriologicalPending)
	assert.Equal(t, 4, corrected.BacteriologicalPositive)
	assert.Equal(t, 4, corrected.BacteriologicalNegative)

	// Nothing left to move.
	_, err = f.submissions.CorrectBacteriological(ctx, detail.ID, 1, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCorrectBacteriologicalValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.submissions.CorrectBacteriological(ctx, 9999, 1, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	detail := f.appendSubmission(t, f.roaring.ID,
		time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC),
		models.Counts{BacteriologicalPending: 2}, "")

	_, err = f.submissions.CorrectBacteriological(ctx, detail.ID, -1, 2)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.submissions.CorrectBacteriological(ctx, detail.ID, 0, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSamplingPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	point := models.SamplingPoint{
		ID: uuid.New(), SupplyID: f.roaring.ID,
		Name: "Intake", Description: "upstream of treatment",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.points.Create(ctx, &point))

	points, err := f.points.ListBySupply(ctx, f.roaring.ID)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "Intake", points[0].Name)

	missing, err := f.points.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	detail, err := f.tasks.Create(ctx, &models.Task{
		ID:         uuid.New(),
		Title:      "Resample Roaring River",
		SupplyID:   f.roaring.ID,
		AssignedTo: f.inspector.ID,
		CreatedBy:  f.adminUser.ID,
		Priority:   models.PriorityHigh,
		DueDate:    &due,
		Status:     models.TaskPending,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, detail.Status)
	assert.Equal(t, "Roaring River", detail.SupplyName)
	assert.Equal(t, "Water Quality Inspector", detail.AssigneeName)
	require.NotNil(t, detail.DueDate)
	assert.Equal(t, due, *detail.DueDate)

	// Only the assignee may advance it.
	_, err = f.tasks.Transition(ctx, detail.ID, f.adminUser.ID, models.TaskPending, models.TaskAccepted)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Skipping a state is refused.
	_, err = f.tasks.Transition(ctx, detail.ID, f.inspector.ID, models.TaskAccepted, models.TaskInProgress)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	accepted, err := f.tasks.Transition(ctx, detail.ID, f.inspector.ID, models.TaskPending, models.TaskAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.TaskAccepted, accepted.Status)

	started, err := f.tasks.Transition(ctx, detail.ID, f.inspector.ID, models.TaskAccepted, models.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, started.Status)

	completed, err := f.tasks.Transition(ctx, detail.ID, f.inspector.ID, models.TaskInProgress, models.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, completed.Status)

	// Terminal: no further transitions.
	_, err = f.tasks.Transition(ctx, detail.ID, f.inspector.ID, models.TaskCompleted, models.TaskPending)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.tasks.Transition(ctx, uuid.New(), f.inspector.ID, models.TaskPending, models.TaskAccepted)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTaskLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, &models.Task{
		ID: uuid.New(), Title: "Check chlorination", SupplyID: f.roaring.ID,
		AssignedTo: f.inspector.ID, CreatedBy: f.adminUser.ID,
		Priority: models.PriorityNormal, Status: models.TaskPending,
	})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, &models.Task{
		ID: uuid.New(), Title: "Inspect intake", SupplyID: f.martha.ID,
		AssignedTo: f.adminUser.ID, CreatedBy: f.adminUser.ID,
		Priority: models.PriorityLow, Status: models.TaskPending,
	})
	require.NoError(t, err)

	all, err := f.tasks.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.tasks.ListByAssignee(ctx, f.inspector.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Check chlorination", mine[0].Title)
}
