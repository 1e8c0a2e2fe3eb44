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
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskDetailSelect = `
	SELECT t.id, t.title, t.supply_id, t.assigned_to, t.created_by,
		t.priority, t.due_date, t.status, t.created_at, t.updated_at,
		ws.name, ws.parish, u.full_name
	FROM tasks t
	JOIN supplies ws ON ws.id = t.supply_id
	JOIN users u ON u.id = t.assigned_to`

func scanTaskDetail(scan func(dest ...any) error) (*models.TaskDetail, error) {
	var d models.TaskDetail
	var id, supplyID, assignedTo, createdBy, priority, status, createdAt, updatedAt string
	var dueDate sql.NullString
	err := scan(
		&id, &d.Title, &supplyID, &assignedTo, &createdBy,
		&priority, &dueDate, &status, &createdAt, &updatedAt,
		&d.SupplyName, &d.Parish, &d.AssigneeName,
	)
	if err != nil {
		return nil, err
	}
	if d.ID, err = decodeUUID(id); err != nil {
		return nil, err
	}
	if d.SupplyID, err = decodeUUID(supplyID); err != nil {
		return nil, err
	}
	if d.AssignedTo, err = decodeUUID(assignedTo); err != nil {
		return nil, err
	}
	if d.CreatedBy, err = decodeUUID(createdBy); err != nil {
		return nil, err
	}
	d.Priority = models.TaskPriority(priority)
	d.Status = models.TaskStatus(status)
	if d.DueDate, err = decodeDatePtr(dueDate); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *TaskStore) Create(ctx context.Context, t *models.Task) (*models.TaskDetail, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, supply_id, assigned_to, created_by,
			priority, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Title, t.SupplyID.String(), t.AssignedTo.String(), t.CreatedBy.String(),
		string(t.Priority), encodeDatePtr(t.DueDate), string(t.Status),
		encodeTime(now), encodeTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	row := s.db.QueryRowContext(ctx, taskDetailSelect+` WHERE t.id = ?`, t.ID.String())
	detail, err := scanTaskDetail(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("read back task: %w", err)
	}
	return detail, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, supply_id, assigned_to, created_by,
			priority, due_date, status, created_at, updated_at
		FROM tasks
		WHERE id = ?`, id.String())

	var t models.Task
	var tid, supplyID, assignedTo, createdBy, priority, status, createdAt, updatedAt string
	var dueDate sql.NullString
	err := row.Scan(
		&tid, &t.Title, &supplyID, &assignedTo, &createdBy,
		&priority, &dueDate, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.ID, err = decodeUUID(tid); err != nil {
		return nil, err
	}
	if t.SupplyID, err = decodeUUID(supplyID); err != nil {
		return nil, err
	}
	if t.AssignedTo, err = decodeUUID(assignedTo); err != nil {
		return nil, err
	}
	if t.CreatedBy, err = decodeUUID(createdBy); err != nil {
		return nil, err
	}
	t.Priority = models.TaskPriority(priority)
	t.Status = models.TaskStatus(status)
	if t.DueDate, err = decodeDatePtr(dueDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskStore) ListByAssignee(ctx context.Context, assignee uuid.UUID) ([]models.TaskDetail, error) {
	query := taskDetailSelect + `
	WHERE t.assigned_to = ?
	ORDER BY t.created_at DESC`
	return s.queryTasks(ctx, query, assignee.String())
}

func (s *TaskStore) ListAll(ctx context.Context) ([]models.TaskDetail, error) {
	query := taskDetailSelect + ` ORDER BY t.created_at DESC`
	return s.queryTasks(ctx, query)
}

func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.TaskDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.TaskDetail, 0)
	for rows.Next() {
		d, err := scanTaskDetail(rows.Scan)
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

func (s *TaskStore) Transition(ctx context.Context, id, assignee uuid.UUID, from, to models.TaskStatus) (*models.TaskDetail, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperr.Validationf("task cannot move from %s to %s", from, to)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE id = ? AND assigned_to = ? AND status = ?`,
		string(to), encodeTime(time.Now().UTC()),
		id.String(), assignee.String(), string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("transition task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition task: %w", err)
	}
	if n == 0 {
		return nil, s.explainTransitionFailure(ctx, id, assignee, from)
	}

	row := s.db.QueryRowContext(ctx, taskDetailSelect+` WHERE t.id = ?`, id.String())
	detail, err := scanTaskDetail(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("read back task: %w", err)
	}
	return detail, nil
}

func (s *TaskStore) explainTransitionFailure(ctx context.Context, id, assignee uuid.UUID, from models.TaskStatus) error {
	var owner, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT assigned_to, status FROM tasks WHERE id = ?`, id.String(),
	).Scan(&owner, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("task %s", id)
		}
		return fmt.Errorf("inspect task: %w", err)
	}
	if owner != assignee.String() {
		return apperr.Forbidden("only the assignee may advance a task")
	}
	return apperr.Validationf("task is %s, expected %s", status, from)
}
