package inmemdb

import (
	"context"
	"sort"

	"github.com/textmine/backend/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func copyNotification(n *notification.Notification) notification.Notification {
	c := *n
	if n.TaskID != nil {
		c.TaskID = strPtr(*n.TaskID)
	}
	return c
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, notifs ...notification.Notification) ([]notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	created := make([]notification.Notification, 0, len(notifs))
	for i := range notifs {
		n := copyNotification(&notifs[i])
		n.ID = repo.db.newID()
		repo.db.notifications[n.ID] = &n
		created = append(created, copyNotification(&n))
	}
	return created, nil
}

func (repo *notificationRepository) GetNotificationByID(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if n, ok := repo.db.notifications[id]; ok {
		return copyNotification(n), nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter *notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID != userID {
			continue
		}
		if filter != nil && filter.Read != nil && n.Read != *filter.Read {
			continue
		}
		notifs = append(notifs, copyNotification(n))
	}
	sort.Slice(notifs, func(i, j int) bool {
		a, b := notifs[i], notifs[j]
		return repo.db.newer(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, notif := range repo.db.notifications {
		if notif.UserID == userID && !notif.Read {
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) SetRead(_ context.Context, id string, read bool) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.Read = read
	return copyNotification(n), nil
}
