package text

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/textmine/backend/core"
)

// MinContentLength is the minimum number of characters of a submitted text, surrounding whitespace excluded.
const MinContentLength = 50

// State is the progress of a miner on a task.
type State string

// States
const (
	StateNotSubmitted State = "not_submitted"
	StateSubmitted    State = "submitted"
	StateModerated    State = "moderated"
)

// Text is a miner's answer to a task. It never changes once stored.
type Text struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	TaskID      *string   `json:"task_id"`      // nil once its task is deleted
	ClassroomID *string   `json:"classroom_id"` // nil once its classroom is deleted
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

func (t Text) InClassroom(classroomID string) bool {
	return t.ClassroomID != nil && *t.ClassroomID == classroomID
}

// ModeratedText is the corrected version of a Text.
type ModeratedText struct {
	ID          string    `json:"id"`
	OriginalID  string    `json:"original_id"`
	ModeratorID string    `json:"moderator_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Result is a Text along with its moderation, if any.
type Result struct {
	Text      Text           `json:"text"`
	Moderated *ModeratedText `json:"moderated"`
}

func (r Result) State() State {
	if r.Moderated != nil {
		return StateModerated
	}
	return StateSubmitted
}

// Progress is where a miner stands on a task.
type Progress struct {
	State     State          `json:"state"`
	Text      *Text          `json:"text"`
	Moderated *ModeratedText `json:"moderated"`
}

type NewText struct {
	Content string `json:"content" validate:"required,min=50"`
}

func (nt *NewText) Validate(validate *validator.Validate) error {
	nt.Content = core.CleanString(nt.Content)
	return validate.Struct(nt)
}

type NewModeratedText struct {
	Content string `json:"content" validate:"required,notblank"`
}

func (nm *NewModeratedText) Validate(validate *validator.Validate) error {
	nm.Content = core.CleanString(nm.Content)
	return validate.Struct(nm)
}

type QueryFilter struct {
	CreatorID   string `query:"creator"`
	ClassroomID string `query:"classroom"`
	TaskID      string `query:"task"`
}

func (qf *QueryFilter) Clean() {
	qf.CreatorID = core.CleanString(qf.CreatorID)
	qf.ClassroomID = core.CleanString(qf.ClassroomID)
	qf.TaskID = core.CleanString(qf.TaskID)
}
