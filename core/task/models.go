package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/textmine/backend/core"
)

// Level is the difficulty of a Task.
type Level string

// Levels
const (
	LevelBeginner     Level = "BEGINNER"
	LevelIntermediate Level = "INTERMEDIATE"
	LevelAdvanced     Level = "ADVANCED"
)

var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type Task struct {
	ID          string    `json:"id"`
	ClassroomID *string   `json:"classroom_id"` // nil once its classroom is deleted
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// InClassroom reports whether the task belongs to classroomID.
func (t Task) InClassroom(classroomID string) bool {
	return t.ClassroomID != nil && *t.ClassroomID == classroomID
}

// NewTask contains information needed to create a new Task. It is also used for edits.
type NewTask struct {
	Level       Level  `json:"level" validate:"required,tasklevel"`
	Title       string `json:"title" validate:"required,notblank,max=50"`
	Description string `json:"description" validate:"required,notblank"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Level = Level(core.CleanString(string(nt.Level)))
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

type QueryFilter struct {
	Level Level `query:"level"`
}

func (qf *QueryFilter) Clean() {
	qf.Level = Level(core.CleanString(string(qf.Level)))
}
