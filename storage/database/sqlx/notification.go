package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/notification"
)

const notificationColumns = "id, user_id, task_id, link, description, read, created_at"

type notificationRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	TaskID      sql.NullString `db:"task_id"`
	Link        string         `db:"link"`
	Description string         `db:"description"`
	Read        bool           `db:"read"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:          r.ID,
		UserID:      r.UserID,
		TaskID:      stringPtr(r.TaskID),
		Link:        r.Link,
		Description: r.Description,
		Read:        r.Read,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) CreateNotifications(ctx context.Context, notifs ...notification.Notification) ([]notification.Notification, error) {
	created := make([]notification.Notification, 0, len(notifs))
	for _, n := range notifs {
		n.ID = newID()
		_, err := repo.exec.ExecContext(ctx,
			`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, n.UserID, nullString(n.TaskID), n.Link, n.Description, n.Read, n.CreatedAt.UTC())
		if err != nil {
			return nil, wrapErr(err, "inserting notification")
		}
		created = append(created, n)
	}
	return created, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	if !validID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification by ID")
	}
	return row.toNotification(), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, filter *notification.QueryFilter) ([]notification.Notification, error) {
	if !validID(userID) {
		return []notification.Notification{}, nil
	}
	q := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = $1"
	args := []interface{}{userID}
	if filter != nil && filter.Read != nil {
		q += " AND read = $2"
		args = append(args, *filter.Read)
	}
	q += " ORDER BY created_at DESC"

	var rows []notificationRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.toNotification())
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var n int
	err := repo.exec.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read", userID)
	return n, wrapErr(err, "counting unread notifications")
}

func (repo notificationRepository) SetRead(ctx context.Context, id string, read bool) (notification.Notification, error) {
	if !validID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	err := repo.exec.GetContext(ctx, &row,
		"UPDATE notifications SET read = $2 WHERE id = $1 RETURNING "+notificationColumns, id, read)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "updating notification")
	}
	return row.toNotification(), nil
}
