package task

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("task")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		GetTaskByID(ctx context.Context, id string) (Task, error)
		// QueryTasks lists the tasks of a classroom, newest first.
		QueryTasks(ctx context.Context, classroomID string, filter *QueryFilter) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTask(ctx context.Context, id string) error
	}

	// Notifier is told about new tasks once they are stored.
	Notifier interface {
		NotifyTaskCreated(ctx context.Context, c classroom.Classroom, t Task) error
	}

	Service struct {
		repo       Repository
		classrooms *classroom.Service
		notifier   Notifier
		validate   *validator.Validate
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	classrooms *classroom.Service,
	notifier Notifier,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		classrooms: classrooms,
		notifier:   notifier,
		validate:   validate,
		logger:     logger,
	}
}

// Create stores a new task in a classroom owned by actor, then notifies the classroom's participants.
// A failing notification never undoes the task.
func (svc *Service) Create(ctx context.Context, actor user.User, classroomID string, nt NewTask) (Task, error) {
	c, err := svc.classrooms.GetForOwner(ctx, actor, classroomID)
	if err != nil {
		return Task{}, err
	}
	if err = nt.Validate(svc.validate); err != nil {
		return Task{}, err
	}

	now := time.Now().UTC()
	t, err := svc.repo.CreateTask(ctx, Task{
		ClassroomID: &c.ID,
		Level:       nt.Level,
		Title:       nt.Title,
		Description: nt.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Task{}, errors.Wrap(err, "creating task")
	}

	if err = svc.notifier.NotifyTaskCreated(ctx, c, t); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying task %s created: %v", t.ID, err), err, actor)
	}
	return t, nil
}

// List lists the tasks of a classroom owned by actor.
func (svc *Service) List(ctx context.Context, actor user.User, classroomID string, filter *QueryFilter) ([]Task, error) {
	if _, err := svc.classrooms.GetForOwner(ctx, actor, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTasks(ctx, classroomID, filter)
}

// ListForMiner lists the tasks of a classroom actor participates in.
func (svc *Service) ListForMiner(ctx context.Context, actor user.User, classroomID string, filter *QueryFilter) ([]Task, error) {
	if _, err := svc.classrooms.GetForParticipant(ctx, actor, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTasks(ctx, classroomID, filter)
}

// ListDefault lists the tasks of the default classroom, open to every miner.
func (svc *Service) ListDefault(ctx context.Context, actor user.User, filter *QueryFilter) ([]Task, error) {
	if err := actor.Require(user.RoleMiner); err != nil {
		return nil, err
	}
	id := svc.classrooms.DefaultID()
	if id == "" {
		return []Task{}, nil
	}
	return svc.repo.QueryTasks(ctx, id, filter)
}

func (svc *Service) Get(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

// GetInClassroom returns the task only if it belongs to classroomID.
func (svc *Service) GetInClassroom(ctx context.Context, classroomID, id string) (Task, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if !t.InClassroom(classroomID) {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// GetForOwner returns a task of a classroom owned by actor.
func (svc *Service) GetForOwner(ctx context.Context, actor user.User, classroomID, id string) (Task, error) {
	if _, err := svc.classrooms.GetForOwner(ctx, actor, classroomID); err != nil {
		return Task{}, err
	}
	return svc.GetInClassroom(ctx, classroomID, id)
}

// Update edits level, title and description of a task in place.
func (svc *Service) Update(ctx context.Context, actor user.User, classroomID, id string, nt NewTask) (Task, error) {
	t, err := svc.GetForOwner(ctx, actor, classroomID, id)
	if err != nil {
		return Task{}, err
	}
	if err = nt.Validate(svc.validate); err != nil {
		return Task{}, err
	}
	t.Level = nt.Level
	t.Title = nt.Title
	t.Description = nt.Description
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTask(ctx, t)
}

// Delete removes a task. Texts written for it are kept without a task.
func (svc *Service) Delete(ctx context.Context, actor user.User, classroomID, id string) error {
	if _, err := svc.GetForOwner(ctx, actor, classroomID, id); err != nil {
		return err
	}
	return svc.repo.DeleteTask(ctx, id)
}
