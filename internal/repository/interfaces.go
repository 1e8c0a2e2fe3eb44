// Package repository defines the persistence contracts for the entity
// catalog, the submission ledger and the task board. Two interchangeable
// backends implement them: postgres (pgx pool) and sqlite (embedded).
//
// Scope discipline: every read that can cross the parish boundary takes the
// caller's resolved scope and filters by it inside the query. Repositories
// never trust a handler to have pre-filtered. Rows outside the caller's
// scope are reported as absent, not forbidden.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

// UserRepository backs the identity provider and seed data.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error

	// GetByUsername returns nil, nil when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns nil, nil when no such user exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	Count(ctx context.Context) (int, error)
}

// SupplyRepository owns the supply register.
type SupplyRepository interface {
	Create(ctx context.Context, s *models.Supply) error

	// Update rewrites the administrative fields of an existing supply.
	// Returns ErrNotFound when the id does not exist.
	Update(ctx context.Context, s *models.Supply) error

	// GetByID returns nil, nil when the supply is absent OR outside the
	// caller's scope, indistinguishable on purpose.
	GetByID(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Supply, error)

	// List returns every supply visible to the caller, ordered by
	// (kind, agency, name) for deterministic report rendering.
	List(ctx context.Context, sc scope.Scope) ([]models.Supply, error)

	Count(ctx context.Context) (int, error)
}

// SamplingPointRepository owns the optional per-supply sampling locations.
type SamplingPointRepository interface {
	Create(ctx context.Context, p *models.SamplingPoint) error

	// GetByID returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SamplingPoint, error)

	ListBySupply(ctx context.Context, supplyID uuid.UUID) ([]models.SamplingPoint, error)
}

// SubmissionRepository is the submission ledger: append-mostly, scan-only.
// The single mutation it permits is the bounded bacteriological correction.
type SubmissionRepository interface {
	// Append durably writes one submission and returns it joined with its
	// display attributes. The write is all-or-nothing: no partial row is
	// ever visible to a concurrent rollup scan.
	Append(ctx context.Context, sub *models.Submission) (*models.SubmissionDetail, error)

	// GetByID returns nil, nil when absent.
	GetByID(ctx context.Context, id int64) (*models.SubmissionDetail, error)

	// ListByInspector returns the inspector's own submissions, newest first.
	ListByInspector(ctx context.Context, inspectorID uuid.UUID, limit int) ([]models.SubmissionDetail, error)

	// ListBySupply returns recent submissions for one supply, newest first,
	// scope-filtered.
	ListBySupply(ctx context.Context, sc scope.Scope, supplyID uuid.UUID, limit int) ([]models.SubmissionDetail, error)

	// ScanMonth returns every submission whose calendar day falls inside
	// (month, year) for supplies visible to the caller, optionally narrowed
	// to one supply. Ordered by id ascending so remark concatenation in the
	// aggregator is stable across calls.
	ScanMonth(ctx context.Context, sc scope.Scope, supplyID *uuid.UUID, month, year int) ([]models.Submission, error)

	// CorrectBacteriological moves positiveAdd+negativeAdd results out of
	// the pending pool on one row. The constraint
	// positiveAdd+negativeAdd <= pending is validated against the value the
	// write is about to overwrite, in the same atomic statement, so two
	// racing corrections cannot both consume the same pending results.
	// Returns ErrValidation when the constraint fails, ErrNotFound when the
	// row is absent.
	CorrectBacteriological(ctx context.Context, id int64, positiveAdd, negativeAdd int) (*models.SubmissionDetail, error)
}

// TaskRepository owns the task board.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) (*models.TaskDetail, error)

	// GetByID returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)

	ListByAssignee(ctx context.Context, assignee uuid.UUID) ([]models.TaskDetail, error)

	ListAll(ctx context.Context) ([]models.TaskDetail, error)

	// Transition atomically moves a task from one status to the next,
	// guarded by (task id, assignee, current status). Returns ErrNotFound
	// when the task is absent, ErrForbidden when the caller is not the
	// assignee, ErrValidation when the task is not in the expected state.
	Transition(ctx context.Context, id, assignee uuid.UUID, from, to models.TaskStatus) (*models.TaskDetail, error)
}
