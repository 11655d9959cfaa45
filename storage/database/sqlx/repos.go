// Package sqlxrepos implements the repositories on Postgres with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
)

const (
	uniqueViolation      = "23505"
	operatorIntervention = pq.ErrorClass("57")
)

// Repositories bundles a repository per domain, all sharing exec.
type Repositories struct {
	Users         user.Repository
	Classrooms    classroom.Repository
	Tasks         task.Repository
	Texts         text.Repository
	Notifications notification.Repository
}

func NewRepositories(exec core.DBExecutor) Repositories {
	return Repositories{
		Users:         NewUserRepository(exec),
		Classrooms:    NewClassroomRepository(exec),
		Tasks:         NewTaskRepository(exec),
		Texts:         NewTextRepository(exec),
		Notifications: NewNotificationRepository(exec),
	}
}

// wrapErr turns an admin shutdown or crash of the server into a shutdown error.
func wrapErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Class() == operatorIntervention {
		return core.NewShutdownError(msg + ": " + pqErr.Message)
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return wrapErr(err, msg)
}

// trapUniqueErr maps a unique violation of constraint to conflict
func trapUniqueErr(err error, constraint string, conflict error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint {
		return conflict
	}
	return wrapErr(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

// orderBy renders ordering, keeping only the fields listed in allowed.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}
