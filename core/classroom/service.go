package classroom

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/user"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("classroom")
	ErrCodeTaken = errors.New("invitation code already in use")

	maxCodeAttempts = 5
)

type (
	Repository interface {
		// CreateClassroom returns ErrCodeTaken when the invitation code collides with an existing one.
		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		GetClassroomByCode(ctx context.Context, code string) (Classroom, error)
		// QueryOwnedClassrooms lists the classrooms of ownerID, or all classrooms when ownerID is empty.
		QueryOwnedClassrooms(ctx context.Context, ownerID string) ([]Summary, error)
		QueryJoinedClassrooms(ctx context.Context, minerID string) ([]Classroom, error)
		DeleteClassroom(ctx context.Context, id string) error

		// AddParticipant is a no-op when the miner already participates.
		AddParticipant(ctx context.Context, classroomID, minerID string, joinedAt time.Time) error
		RemoveParticipant(ctx context.Context, classroomID, minerID string) error
		IsParticipant(ctx context.Context, classroomID, minerID string) (bool, error)
		QueryParticipants(ctx context.Context, classroomID string) ([]user.User, error)
	}

	Service struct {
		repo      Repository
		validate  *validator.Validate
		defaultID string
		genCode   func() (string, error)
	}
)

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:      repo,
		validate:  validate,
		defaultID: conf.Workflow.DefaultClassroomID,
		genCode:   func() (string, error) { return gonanoid.Generate(CodeAlphabet, CodeLength) },
	}
}

// IsDefault reports whether id is the configured default classroom, open to every miner.
func (svc *Service) IsDefault(id string) bool {
	return svc.defaultID != "" && id == svc.defaultID
}

// DefaultID returns the configured default classroom ID; empty when none is configured.
func (svc *Service) DefaultID() string {
	return svc.defaultID
}

// Create creates a classroom owned by actor with a fresh invitation code.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewClassroom) (Classroom, error) {
	if err := actor.Require(user.RoleModerator); err != nil {
		return Classroom{}, err
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Classroom{}, err
	}

	c := Classroom{
		OwnerID:   actor.ID,
		Title:     nc.Title,
		CreatedAt: time.Now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		code, err := svc.genCode()
		if err != nil {
			return Classroom{}, errors.Wrap(err, "generating invitation code")
		}
		c.InvitationCode = code

		created, err := svc.repo.CreateClassroom(ctx, c)
		if err == nil {
			return created, nil
		}
		if errors.Cause(err) != ErrCodeTaken || attempt >= maxCodeAttempts {
			return Classroom{}, errors.Wrap(err, "creating classroom")
		}
	}
}

// Join adds actor to the classroom holding code. Joining twice is a no-op.
func (svc *Service) Join(ctx context.Context, actor user.User, code string) (Classroom, error) {
	if err := actor.Require(user.RoleMiner); err != nil {
		return Classroom{}, err
	}
	jr := JoinRequest{Code: code}
	if err := jr.Validate(svc.validate); err != nil {
		return Classroom{}, err
	}

	c, err := svc.repo.GetClassroomByCode(ctx, jr.Code)
	if err != nil {
		return Classroom{}, err
	}
	if err = svc.repo.AddParticipant(ctx, c.ID, actor.ID, time.Now().UTC()); err != nil {
		return Classroom{}, errors.Wrap(err, "adding participant")
	}
	return c, nil
}

// RemoveParticipant removes a miner from a classroom; their texts are kept.
func (svc *Service) RemoveParticipant(ctx context.Context, actor user.User, classroomID, minerID string) error {
	if _, err := svc.GetForOwner(ctx, actor, classroomID); err != nil {
		return err
	}
	return svc.repo.RemoveParticipant(ctx, classroomID, minerID)
}

// ListOwned lists actor's classrooms; admins see every classroom.
func (svc *Service) ListOwned(ctx context.Context, actor user.User) ([]Summary, error) {
	if err := actor.Require(user.RoleModerator); err != nil {
		return nil, err
	}
	ownerID := actor.ID
	if actor.IsAdmin() {
		ownerID = ""
	}
	return svc.repo.QueryOwnedClassrooms(ctx, ownerID)
}

func (svc *Service) ListJoined(ctx context.Context, actor user.User) ([]Classroom, error) {
	if err := actor.Require(user.RoleMiner); err != nil {
		return nil, err
	}
	return svc.repo.QueryJoinedClassrooms(ctx, actor.ID)
}

func (svc *Service) Get(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

// GetForOwner returns the classroom if actor owns it or is an admin.
// Classrooms of other moderators are reported as not found.
func (svc *Service) GetForOwner(ctx context.Context, actor user.User, id string) (Classroom, error) {
	if err := actor.Require(user.RoleModerator); err != nil {
		return Classroom{}, err
	}
	c, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if c.OwnerID != actor.ID && !actor.IsAdmin() {
		return Classroom{}, ErrNotFound
	}
	return c, nil
}

// GetForParticipant returns the classroom if actor participates in it, or if it is the default classroom.
func (svc *Service) GetForParticipant(ctx context.Context, actor user.User, id string) (Classroom, error) {
	if err := actor.Require(user.RoleMiner); err != nil {
		return Classroom{}, err
	}
	c, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if svc.IsDefault(c.ID) {
		return c, nil
	}
	ok, err := svc.repo.IsParticipant(ctx, c.ID, actor.ID)
	if err != nil {
		return Classroom{}, errors.Wrap(err, "checking membership")
	}
	if !ok {
		return Classroom{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) IsParticipant(ctx context.Context, classroomID, minerID string) (bool, error) {
	return svc.repo.IsParticipant(ctx, classroomID, minerID)
}

// Participants lists the miners of a classroom owned by actor.
func (svc *Service) Participants(ctx context.Context, actor user.User, classroomID string) ([]user.User, error) {
	if _, err := svc.GetForOwner(ctx, actor, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryParticipants(ctx, classroomID)
}

// ParticipantsOf lists the current miners of a classroom without any scope check.
func (svc *Service) ParticipantsOf(ctx context.Context, classroomID string) ([]user.User, error) {
	return svc.repo.QueryParticipants(ctx, classroomID)
}

// Delete removes a classroom. Its tasks and texts are kept, detached from it.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.GetForOwner(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteClassroom(ctx, id)
}
