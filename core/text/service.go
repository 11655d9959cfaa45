package text

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("text")
	ErrModeratedNotFound = core.NewNotFoundError("moderated text")
	ErrResultNotFound    = core.NewNotFoundError("result")
	ErrAlreadySubmitted  = core.NewConflictError("a text was already submitted for this task")
	ErrAlreadyModerated  = core.NewConflictError("this text was already moderated")
)

type (
	Repository interface {
		// CreateText returns ErrAlreadySubmitted if the creator already has a text for the task.
		CreateText(ctx context.Context, t Text) (Text, error)
		GetTextByID(ctx context.Context, id string) (Text, error)
		GetTextByCreatorAndTask(ctx context.Context, creatorID, taskID string) (Text, error)
		// QueryTexts applies AND operation on available QueryFilter fields, newest first.
		QueryTexts(ctx context.Context, filter *QueryFilter) ([]Text, error)
		// QueryPendingTexts lists the texts of a classroom that have no moderation yet, oldest first.
		QueryPendingTexts(ctx context.Context, classroomID string) ([]Text, error)
		// QueryResults lists the texts of a creator in a classroom with their moderation, newest first.
		QueryResults(ctx context.Context, creatorID, classroomID string) ([]Result, error)

		// CreateModeratedText returns ErrAlreadyModerated if the original text already has a moderation.
		CreateModeratedText(ctx context.Context, m ModeratedText) (ModeratedText, error)
		GetModeratedTextByID(ctx context.Context, id string) (ModeratedText, error)
		GetModeratedTextByOriginal(ctx context.Context, originalID string) (ModeratedText, error)
		// QueryModeratedTexts lists the moderations of a classroom's texts, or all of them when classroomID is empty.
		QueryModeratedTexts(ctx context.Context, classroomID string) ([]ModeratedText, error)
	}

	// Notifier is told about submissions and moderations once they are stored.
	Notifier interface {
		NotifyTextSubmitted(ctx context.Context, c classroom.Classroom, t Text) error
		NotifyTextModerated(ctx context.Context, m ModeratedText, original Text) error
	}

	Service struct {
		repo       Repository
		classrooms *classroom.Service
		tasks      *task.Service
		notifier   Notifier
		validate   *validator.Validate
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	classrooms *classroom.Service,
	tasks *task.Service,
	notifier Notifier,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		classrooms: classrooms,
		tasks:      tasks,
		notifier:   notifier,
		validate:   validate,
		logger:     logger,
	}
}

// Submit stores actor's text for a task of a classroom they participate in.
// A miner has at most one text per task: when one exists it is returned as is, with created = false.
func (svc *Service) Submit(ctx context.Context, actor user.User, classroomID, taskID string, nt NewText) (txt Text, created bool, err error) {
	if err = actor.Require(user.RoleMiner); err != nil {
		return Text{}, false, err
	}
	c, err := svc.classrooms.GetForParticipant(ctx, actor, classroomID)
	if err != nil {
		return Text{}, false, err
	}
	t, err := svc.tasks.GetInClassroom(ctx, c.ID, taskID)
	if err != nil {
		return Text{}, false, err
	}

	if txt, err = svc.repo.GetTextByCreatorAndTask(ctx, actor.ID, t.ID); err == nil {
		return txt, false, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Text{}, false, errors.Wrap(err, "finding existing text")
	}

	if err = nt.Validate(svc.validate); err != nil {
		return Text{}, false, err
	}

	txt, err = svc.repo.CreateText(ctx, Text{
		CreatorID:   actor.ID,
		TaskID:      &t.ID,
		ClassroomID: &c.ID,
		Content:     nt.Content,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			// a concurrent submission won the race
			txt, err = svc.repo.GetTextByCreatorAndTask(ctx, actor.ID, t.ID)
			return txt, false, errors.Wrap(err, "finding existing text")
		}
		return Text{}, false, errors.Wrap(err, "creating text")
	}

	if err = svc.notifier.NotifyTextSubmitted(ctx, c, txt); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying text %s submitted: %v", txt.ID, err), err, actor)
	}
	return txt, true, nil
}

// Moderate stores the corrected version of a text of a classroom owned by actor.
// A text is moderated at most once.
func (svc *Service) Moderate(ctx context.Context, actor user.User, classroomID, textID string, nm NewModeratedText) (ModeratedText, error) {
	c, err := svc.classrooms.GetForOwner(ctx, actor, classroomID)
	if err != nil {
		return ModeratedText{}, err
	}
	txt, err := svc.repo.GetTextByID(ctx, textID)
	if err != nil {
		return ModeratedText{}, err
	}
	if !txt.InClassroom(c.ID) {
		return ModeratedText{}, ErrNotFound
	}
	if err = nm.Validate(svc.validate); err != nil {
		return ModeratedText{}, err
	}

	if _, err = svc.repo.GetModeratedTextByOriginal(ctx, txt.ID); err == nil {
		return ModeratedText{}, ErrAlreadyModerated
	} else if errors.Cause(err) != ErrModeratedNotFound {
		return ModeratedText{}, errors.Wrap(err, "finding existing moderation")
	}

	m, err := svc.repo.CreateModeratedText(ctx, ModeratedText{
		OriginalID:  txt.ID,
		ModeratorID: actor.ID,
		Content:     nm.Content,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyModerated {
			return ModeratedText{}, ErrAlreadyModerated
		}
		return ModeratedText{}, errors.Wrap(err, "creating moderated text")
	}

	if err = svc.notifier.NotifyTextModerated(ctx, m, txt); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying text %s moderated: %v", txt.ID, err), err, actor)
	}
	return m, nil
}

// Progress tells where actor stands on a task of a classroom they participate in.
func (svc *Service) Progress(ctx context.Context, actor user.User, classroomID, taskID string) (task.Task, Progress, error) {
	if _, err := svc.classrooms.GetForParticipant(ctx, actor, classroomID); err != nil {
		return task.Task{}, Progress{}, err
	}
	t, err := svc.tasks.GetInClassroom(ctx, classroomID, taskID)
	if err != nil {
		return task.Task{}, Progress{}, err
	}

	txt, err := svc.repo.GetTextByCreatorAndTask(ctx, actor.ID, t.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return t, Progress{State: StateNotSubmitted}, nil
		}
		return task.Task{}, Progress{}, errors.Wrap(err, "finding text")
	}
	p := Progress{State: StateSubmitted, Text: &txt}

	m, err := svc.repo.GetModeratedTextByOriginal(ctx, txt.ID)
	if err == nil {
		p.State = StateModerated
		p.Moderated = &m
	} else if errors.Cause(err) != ErrModeratedNotFound {
		return task.Task{}, Progress{}, errors.Wrap(err, "finding moderation")
	}
	return t, p, nil
}

// OpenTasks lists the tasks of a classroom actor has not submitted a text for yet.
func (svc *Service) OpenTasks(ctx context.Context, actor user.User, classroomID string, filter *task.QueryFilter) ([]task.Task, error) {
	tasks, err := svc.tasks.ListForMiner(ctx, actor, classroomID, filter)
	if err != nil {
		return nil, err
	}
	texts, err := svc.repo.QueryTexts(ctx, &QueryFilter{CreatorID: actor.ID, ClassroomID: classroomID})
	if err != nil {
		return nil, errors.Wrap(err, "querying texts")
	}

	done := make(map[string]struct{}, len(texts))
	for _, txt := range texts {
		if txt.TaskID != nil {
			done[*txt.TaskID] = struct{}{}
		}
	}
	open := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := done[t.ID]; !ok {
			open = append(open, t)
		}
	}
	return open, nil
}

// Results lists actor's texts in a classroom along with their moderation.
// Membership is not checked: miners keep their history after leaving a classroom.
func (svc *Service) Results(ctx context.Context, actor user.User, classroomID string) ([]Result, error) {
	if err := actor.Require(user.RoleMiner); err != nil {
		return nil, err
	}
	return svc.repo.QueryResults(ctx, actor.ID, classroomID)
}

// Result returns actor's result for one task of a classroom.
func (svc *Service) Result(ctx context.Context, actor user.User, classroomID, taskID string) (Result, error) {
	results, err := svc.Results(ctx, actor, classroomID)
	if err != nil {
		return Result{}, err
	}
	for _, r := range results {
		if r.Text.TaskID != nil && *r.Text.TaskID == taskID {
			return r, nil
		}
	}
	return Result{}, ErrResultNotFound
}

// Pending lists the texts of a classroom owned by actor that wait for moderation.
func (svc *Service) Pending(ctx context.Context, actor user.User, classroomID string) ([]Text, error) {
	if _, err := svc.classrooms.GetForOwner(ctx, actor, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPendingTexts(ctx, classroomID)
}

// Moderated lists the moderations made in a classroom owned by actor.
func (svc *Service) Moderated(ctx context.Context, actor user.User, classroomID string) ([]ModeratedText, error) {
	if _, err := svc.classrooms.GetForOwner(ctx, actor, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryModeratedTexts(ctx, classroomID)
}

// GetModerated returns one moderation of a classroom owned by actor, with its original text.
func (svc *Service) GetModerated(ctx context.Context, actor user.User, classroomID, id string) (Result, error) {
	if _, err := svc.classrooms.GetForOwner(ctx, actor, classroomID); err != nil {
		return Result{}, err
	}
	m, err := svc.repo.GetModeratedTextByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	txt, err := svc.repo.GetTextByID(ctx, m.OriginalID)
	if err != nil {
		return Result{}, errors.Wrap(err, "finding original text")
	}
	if !txt.InClassroom(classroomID) {
		return Result{}, ErrModeratedNotFound
	}
	return Result{Text: txt, Moderated: &m}, nil
}

// List lists every text matching filter. Admin only.
func (svc *Service) List(ctx context.Context, actor user.User, filter *QueryFilter) ([]Text, error) {
	if err := actor.Require(user.RoleAdmin); err != nil {
		return nil, err
	}
	return svc.repo.QueryTexts(ctx, filter)
}

// ListModerated lists every moderation. Admin only.
func (svc *Service) ListModerated(ctx context.Context, actor user.User) ([]ModeratedText, error) {
	if err := actor.Require(user.RoleAdmin); err != nil {
		return nil, err
	}
	return svc.repo.QueryModeratedTexts(ctx, "")
}
