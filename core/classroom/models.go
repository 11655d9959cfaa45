package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/textmine/backend/core"
)

const (
	CodeLength   = 8
	CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

type Classroom struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	InvitationCode string    `json:"invitation_code"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// Summary is a Classroom as listed to its owner.
type Summary struct {
	Classroom
	TasksCount        int `json:"tasks_count"`
	ParticipantsCount int `json:"participants_count"`
}

type NewClassroom struct {
	Title string `json:"title" validate:"required,notblank,max=50"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type JoinRequest struct {
	Code string `json:"code" validate:"required,invitecode"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Code = core.CleanString(jr.Code)
	return validate.Struct(jr)
}
