package notification

import (
	"context"
	"time"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("notification")
)

type (
	Repository interface {
		CreateNotifications(ctx context.Context, notifs ...Notification) ([]Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// QueryNotifications lists the notifications of a user, newest first.
		QueryNotifications(ctx context.Context, userID string, filter *QueryFilter) ([]Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		SetRead(ctx context.Context, id string, read bool) (Notification, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores one notification per recipient. Descriptions are cut to DescriptionMaxLength.
func (svc *Service) Create(ctx context.Context, recipientIDs []string, taskID *string, link, description string) ([]Notification, error) {
	if len(recipientIDs) == 0 {
		return []Notification{}, nil
	}
	now := time.Now().UTC()
	description = core.Truncate(core.CleanString(description), DescriptionMaxLength)

	notifs := make([]Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		notifs = append(notifs, Notification{
			UserID:      id,
			TaskID:      taskID,
			Link:        link,
			Description: description,
			CreatedAt:   now,
		})
	}
	return svc.repo.CreateNotifications(ctx, notifs...)
}

// List lists actor's own notifications.
func (svc *Service) List(ctx context.Context, actor user.User, filter *QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, actor.ID, filter)
}

func (svc *Service) UnreadCount(ctx context.Context, actor user.User) (int, error) {
	return svc.repo.CountUnread(ctx, actor.ID)
}

// Toggle flips the read flag of one of actor's notifications.
// Notifications of other users are reported as not found.
func (svc *Service) Toggle(ctx context.Context, actor user.User, id string) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != actor.ID {
		return Notification{}, ErrNotFound
	}
	return svc.repo.SetRead(ctx, n.ID, !n.Read)
}
