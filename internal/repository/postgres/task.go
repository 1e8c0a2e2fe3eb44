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
)

type TaskStore struct {
	pool *pgxpool.Pool
}

func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

const taskDetailSelect = `
	SELECT t.id, t.title, t.supply_id, t.assigned_to, t.created_by,
		t.priority, t.due_date, t.status, t.created_at, t.updated_at,
		ws.name, ws.parish, u.full_name
	FROM tasks t
	JOIN supplies ws ON ws.id = t.supply_id
	JOIN users u ON u.id = t.assigned_to`

func scanTaskDetail(row scanner) (*models.TaskDetail, error) {
	var d models.TaskDetail
	err := row.Scan(
		&d.ID, &d.Title, &d.SupplyID, &d.AssignedTo, &d.CreatedBy,
		&d.Priority, &d.DueDate, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&d.SupplyName, &d.Parish, &d.AssigneeName,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *TaskStore) Create(ctx context.Context, t *models.Task) (*models.TaskDetail, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO tasks (id, title, supply_id, assigned_to, created_by,
			priority, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Title, t.SupplyID, t.AssignedTo, t.CreatedBy,
		t.Priority, t.DueDate, t.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	detail, err := scanTaskDetail(s.pool.QueryRow(ctx, taskDetailSelect+` WHERE t.id = $1`, t.ID))
	if err != nil {
		return nil, fmt.Errorf("read back task: %w", err)
	}
	return detail, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `
		SELECT id, title, supply_id, assigned_to, created_by,
			priority, due_date, status, created_at, updated_at
		FROM tasks
		WHERE id = $1`

	var t models.Task
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.SupplyID, &t.AssignedTo, &t.CreatedBy,
		&t.Priority, &t.DueDate, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *TaskStore) ListByAssignee(ctx context.Context, assignee uuid.UUID) ([]models.TaskDetail, error) {
	query := taskDetailSelect + `
	WHERE t.assigned_to = $1
	ORDER BY t.created_at DESC`

	return s.queryTasks(ctx, query, assignee)
}

func (s *TaskStore) ListAll(ctx context.Context) ([]models.TaskDetail, error) {
	query := taskDetailSelect + ` ORDER BY t.created_at DESC`
	return s.queryTasks(ctx, query)
}

func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.TaskDetail, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.TaskDetail, 0)
	for rows.Next() {
		d, err := scanTaskDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// Transition is a single guarded status update. The WHERE clause carries the
// whole guard (task id, assignee, expected current status) so a transition
// from a stale state matches nothing instead of clobbering a concurrent one.
func (s *TaskStore) Transition(ctx context.Context, id, assignee uuid.UUID, from, to models.TaskStatus) (*models.TaskDetail, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperr.Validationf("task cannot move from %s to %s", from, to)
	}

	query := `
		UPDATE tasks
		SET status = $4, updated_at = now()
		WHERE id = $1 AND assigned_to = $2 AND status = $3
		RETURNING id`

	var updated uuid.UUID
	err := s.pool.QueryRow(ctx, query, id, assignee, from, to).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainTransitionFailure(ctx, id, assignee, from)
		}
		return nil, fmt.Errorf("transition task: %w", err)
	}

	detail, err := scanTaskDetail(s.pool.QueryRow(ctx, taskDetailSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("read back task: %w", err)
	}
	return detail, nil
}

func (s *TaskStore) explainTransitionFailure(ctx context.Context, id, assignee uuid.UUID, from models.TaskStatus) error {
	var owner uuid.UUID
	var status models.TaskStatus
	err := s.pool.QueryRow(ctx,
		`SELECT assigned_to, status FROM tasks WHERE id = $1`, id,
	).Scan(&owner, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("task %s", id)
		}
		return fmt.Errorf("inspect task: %w", err)
	}
	if owner != assignee {
		return apperr.Forbidden("only the assignee may advance a task")
	}
	return apperr.Validationf("task is %s, expected %s", status, from)
}
