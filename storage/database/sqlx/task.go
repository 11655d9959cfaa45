package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/task"
)

const taskColumns = "id, classroom_id, level, title, description, created_at, updated_at"

type taskRow struct {
	ID          string         `db:"id"`
	ClassroomID sql.NullString `db:"classroom_id"`
	Level       string         `db:"level"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r taskRow) toTask() task.Task {
	return task.Task{
		ID:          r.ID,
		ClassroomID: stringPtr(r.ClassroomID),
		Level:       task.Level(r.Level),
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type taskRepository struct {
	exec core.DBExecutor
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(exec core.DBExecutor) *taskRepository {
	return &taskRepository{exec: exec}
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = newID()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, nullString(t.ClassroomID), string(t.Level), t.Title, t.Description, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return task.Task{}, wrapErr(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	if !validID(id) {
		return task.Task{}, task.ErrNotFound
	}
	var row taskRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id); err != nil {
		return task.Task{}, trapNoRowsErr(err, task.ErrNotFound, "finding task by ID")
	}
	return row.toTask(), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, classroomID string, filter *task.QueryFilter) ([]task.Task, error) {
	if !validID(classroomID) {
		return []task.Task{}, nil
	}
	q := "SELECT " + taskColumns + " FROM tasks WHERE classroom_id = $1"
	args := []interface{}{classroomID}
	if filter != nil && filter.Level != "" {
		q += " AND level = $2"
		args = append(args, string(filter.Level))
	}
	q += " ORDER BY created_at DESC"

	var rows []taskRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if !validID(t.ID) {
		return task.Task{}, task.ErrNotFound
	}
	var row taskRow
	err := repo.exec.GetContext(ctx, &row, `
		UPDATE tasks SET level = $2, title = $3, description = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+taskColumns,
		t.ID, string(t.Level), t.Title, t.Description, t.UpdatedAt.UTC())
	if err != nil {
		return task.Task{}, trapNoRowsErr(err, task.ErrNotFound, "updating task")
	}
	return row.toTask(), nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, id string) error {
	if !validID(id) {
		return task.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return wrapErr(err, "deleting task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.ErrNotFound
	}
	return nil
}
