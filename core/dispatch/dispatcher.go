// Package dispatch turns workflow events into queued jobs and handles those jobs:
// it stores in-app notifications and sends the matching emails.
package dispatch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
)

// Job kinds
const (
	KindTaskCreated   = "notify.task_created"
	KindTextSubmitted = "notify.text_submitted"
	KindTextModerated = "notify.text_moderated"
	KindSendEmail     = "email.send"
)

// AlertTemplate is the email template used for every workflow alert.
const AlertTemplate = "workflow_alert"

type (
	taskCreatedPayload struct {
		ClassroomID    string `json:"classroom_id"`
		ClassroomTitle string `json:"classroom_title"`
		TaskID         string `json:"task_id"`
		TaskTitle      string `json:"task_title"`
	}

	textSubmittedPayload struct {
		ClassroomID    string  `json:"classroom_id"`
		ClassroomTitle string  `json:"classroom_title"`
		OwnerID        string  `json:"owner_id"`
		TextID         string  `json:"text_id"`
		CreatorID      string  `json:"creator_id"`
		TaskID         *string `json:"task_id"`
	}

	textModeratedPayload struct {
		ModeratedID string  `json:"moderated_id"`
		TextID      string  `json:"text_id"`
		CreatorID   string  `json:"creator_id"`
		ModeratorID string  `json:"moderator_id"`
		ClassroomID *string `json:"classroom_id"`
		TaskID      *string `json:"task_id"`
	}

	Recipient struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// EmailPayload is a templated email waiting to be sent to a single recipient.
	EmailPayload struct {
		TemplateName string    `json:"template_name"`
		Recipient    Recipient `json:"recipient"`
		Subject      string    `json:"subject"`
		Title        string    `json:"title"`
		Body         string    `json:"body"`
		URL          string    `json:"url"`
	}
)

// Dispatcher enqueues notification jobs. It never waits for them to run.
type Dispatcher struct {
	queue core.JobQueue
}

var (
	_ task.Notifier = (*Dispatcher)(nil) // interface compliance check
	_ text.Notifier = (*Dispatcher)(nil)
)

func NewDispatcher(queue core.JobQueue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) enqueue(ctx context.Context, kind string, payload interface{}) error {
	if _, err := d.queue.Enqueue(ctx, kind, payload); err != nil {
		return errors.Wrap(err, fmt.Sprintf("enqueueing %s", kind))
	}
	return nil
}

// NotifyTaskCreated fans a new task out to every current participant of its classroom.
func (d *Dispatcher) NotifyTaskCreated(ctx context.Context, c classroom.Classroom, t task.Task) error {
	return d.enqueue(ctx, KindTaskCreated, taskCreatedPayload{
		ClassroomID:    c.ID,
		ClassroomTitle: c.Title,
		TaskID:         t.ID,
		TaskTitle:      t.Title,
	})
}

// NotifyTextSubmitted tells the classroom owner a text waits for moderation.
func (d *Dispatcher) NotifyTextSubmitted(ctx context.Context, c classroom.Classroom, t text.Text) error {
	return d.enqueue(ctx, KindTextSubmitted, textSubmittedPayload{
		ClassroomID:    c.ID,
		ClassroomTitle: c.Title,
		OwnerID:        c.OwnerID,
		TextID:         t.ID,
		CreatorID:      t.CreatorID,
		TaskID:         t.TaskID,
	})
}

// NotifyTextModerated tells the creator of a text it has been moderated.
func (d *Dispatcher) NotifyTextModerated(ctx context.Context, m text.ModeratedText, original text.Text) error {
	return d.enqueue(ctx, KindTextModerated, textModeratedPayload{
		ModeratedID: m.ID,
		TextID:      original.ID,
		CreatorID:   original.CreatorID,
		ModeratorID: m.ModeratorID,
		ClassroomID: original.ClassroomID,
		TaskID:      original.TaskID,
	})
}

// SendEmail queues a templated email.
func (d *Dispatcher) SendEmail(ctx context.Context, p EmailPayload) (core.JobHandle, error) {
	if p.TemplateName == "" {
		p.TemplateName = AlertTemplate
	}
	return d.queue.Enqueue(ctx, KindSendEmail, p)
}
