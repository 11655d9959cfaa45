package dispatch

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/user"
)

// Registrar binds job kinds to handlers.
type Registrar interface {
	Handle(kind string, fn core.JobHandler)
}

// Handlers run the jobs enqueued by a Dispatcher.
// Jobs are delivered at least once, so a retried job may notify its recipients twice.
type Handlers struct {
	dispatcher    *Dispatcher
	users         *user.Service
	classrooms    *classroom.Service
	notifications *notification.Service
	mailSvc       core.EmailService
	conf          *core.Config
}

func NewHandlers(
	dispatcher *Dispatcher,
	users *user.Service,
	classrooms *classroom.Service,
	notifications *notification.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) *Handlers {
	return &Handlers{
		dispatcher:    dispatcher,
		users:         users,
		classrooms:    classrooms,
		notifications: notifications,
		mailSvc:       mailSvc,
		conf:          conf,
	}
}

// Register binds every job kind to its handler.
func (h *Handlers) Register(r Registrar) {
	r.Handle(KindTaskCreated, h.handleTaskCreated)
	r.Handle(KindTextSubmitted, h.handleTextSubmitted)
	r.Handle(KindTextModerated, h.handleTextModerated)
	r.Handle(KindSendEmail, h.handleSendEmail)
}

func MinerTaskLink(classroomID, taskID string) string {
	return fmt.Sprintf("/miner/classrooms/%s/tasks/%s", classroomID, taskID)
}

func MinerResultLink(classroomID, taskID string) string {
	return fmt.Sprintf("/miner/classrooms/%s/results/%s", classroomID, taskID)
}

func ModeratorPendingLink(classroomID string) string {
	return fmt.Sprintf("/moderator/classrooms/%s/texts/pending", classroomID)
}

const minerNotificationsLink = "/miner/notifications"

func (h *Handlers) handleTaskCreated(ctx context.Context, job core.Job) error {
	var p taskCreatedPayload
	if err := job.DecodePayload(&p); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	participants, err := h.classrooms.ParticipantsOf(ctx, p.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "querying participants")
	}
	if len(participants) == 0 {
		return nil
	}

	link := MinerTaskLink(p.ClassroomID, p.TaskID)
	message := fmt.Sprintf("new task added in %s", p.ClassroomTitle)
	ids := make([]string, 0, len(participants))
	for _, usr := range participants {
		ids = append(ids, usr.ID)
	}
	if _, err = h.notifications.Create(ctx, ids, &p.TaskID, link, message); err != nil {
		return errors.Wrap(err, "creating notifications")
	}

	return h.sendAlerts(ctx, participants, "New task", p.TaskTitle, message, link)
}

func (h *Handlers) handleTextSubmitted(ctx context.Context, job core.Job) error {
	var p textSubmittedPayload
	if err := job.DecodePayload(&p); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	owner, err := h.users.GetByID(ctx, p.OwnerID)
	if err != nil {
		return errors.Wrap(err, "finding classroom owner")
	}

	link := ModeratorPendingLink(p.ClassroomID)
	message := fmt.Sprintf("new text submitted in %s", p.ClassroomTitle)
	if _, err = h.notifications.Create(ctx, []string{owner.ID}, p.TaskID, link, message); err != nil {
		return errors.Wrap(err, "creating notification")
	}

	return h.sendAlerts(ctx, []user.User{owner}, "New text", "A text is waiting for moderation", message, link)
}

func (h *Handlers) handleTextModerated(ctx context.Context, job core.Job) error {
	var p textModeratedPayload
	if err := job.DecodePayload(&p); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	creator, err := h.users.GetByID(ctx, p.CreatorID)
	if err != nil {
		return errors.Wrap(err, "finding text creator")
	}

	link := minerNotificationsLink
	if p.ClassroomID != nil && p.TaskID != nil {
		link = MinerResultLink(*p.ClassroomID, *p.TaskID)
	}
	message := "your text has been moderated"
	if _, err = h.notifications.Create(ctx, []string{creator.ID}, p.TaskID, link, message); err != nil {
		return errors.Wrap(err, "creating notification")
	}

	return h.sendAlerts(ctx, []user.User{creator}, "Text moderated", "Your text has been moderated", message, link)
}

// sendAlerts queues one alert email per recipient.
func (h *Handlers) sendAlerts(ctx context.Context, recipients []user.User, subject, title, body, link string) error {
	for _, usr := range recipients {
		_, err := h.dispatcher.SendEmail(ctx, EmailPayload{
			TemplateName: AlertTemplate,
			Recipient:    Recipient{Name: usr.Name, Email: usr.Email},
			Subject:      subject,
			Title:        title,
			Body:         body,
			URL:          link,
		})
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("queueing email for %s", usr.ID))
		}
	}
	return nil
}

type alertData struct {
	Name  string
	Title string
	Body  string
	URL   string
}

func (h *Handlers) handleSendEmail(ctx context.Context, job core.Job) error {
	var p EmailPayload
	if err := job.DecodePayload(&p); err != nil {
		return errors.Wrap(err, "decoding payload")
	}
	if p.Recipient.Email == "" {
		return nil
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: p.Recipient.Name, Address: p.Recipient.Email}},
		Subject:      p.Subject,
		TemplateName: p.TemplateName,
		TemplateData: alertData{
			Name:  p.Recipient.Name,
			Title: p.Title,
			Body:  p.Body,
			URL:   p.URL,
		},
	}
	return errors.Wrap(h.mailSvc.Send(ctx, msg), "sending email")
}
