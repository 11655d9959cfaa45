package inmemdb

import (
	"context"
	"sort"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t.ClassroomID != nil {
		if _, ok := repo.db.classrooms[*t.ClassroomID]; !ok {
			return task.Task{}, classroom.ErrNotFound
		}
		t.ClassroomID = strPtr(*t.ClassroomID)
	}
	t.ID = repo.db.newID()
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTaskByID(_ context.Context, id string) (task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return copyTask(t), nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, classroomID string, filter *task.QueryFilter) ([]task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tasks := make([]task.Task, 0)
	for _, t := range repo.db.tasks {
		if !t.InClassroom(classroomID) {
			continue
		}
		if filter != nil && filter.Level != "" && t.Level != filter.Level {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		return repo.db.newer(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	orig.Level = t.Level
	orig.Title = t.Title
	orig.Description = t.Description
	orig.UpdatedAt = t.UpdatedAt
	return copyTask(orig), nil
}

// DeleteTask removes a task; its texts and notifications lose the reference.
func (repo *taskRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(repo.db.tasks, id)
	for _, txt := range repo.db.texts {
		if txt.TaskID != nil && *txt.TaskID == id {
			txt.TaskID = nil
		}
	}
	for _, n := range repo.db.notifications {
		if n.TaskID != nil && *n.TaskID == id {
			n.TaskID = nil
		}
	}
	return nil
}

// copyTask detaches the returned task from the stored pointers.
func copyTask(t *task.Task) task.Task {
	c := *t
	if t.ClassroomID != nil {
		c.ClassroomID = strPtr(*t.ClassroomID)
	}
	return c
}
