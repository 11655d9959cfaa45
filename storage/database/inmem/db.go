// Package inmemdb keeps every table in process memory. It backs tests and local runs without Postgres.
package inmemdb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
)

type participantKey struct {
	classroomID string
	minerID     string
}

// DB holds the tables. A single lock guards them all so that cascades stay consistent.
type DB struct {
	mu            sync.RWMutex
	users         map[string]*user.User
	classrooms    map[string]*classroom.Classroom
	participants  map[participantKey]time.Time
	tasks         map[string]*task.Task
	texts         map[string]*text.Text
	moderated     map[string]*text.ModeratedText
	notifications map[string]*notification.Notification

	// insertion order by row ID, breaks ties between equal timestamps
	seq     map[string]int64
	lastSeq int64
}

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		classrooms:    make(map[string]*classroom.Classroom),
		participants:  make(map[participantKey]time.Time),
		tasks:         make(map[string]*task.Task),
		texts:         make(map[string]*text.Text),
		moderated:     make(map[string]*text.ModeratedText),
		notifications: make(map[string]*notification.Notification),
		seq:           make(map[string]int64),
	}
}

// newID returns a fresh row ID. Callers hold the write lock.
func (db *DB) newID() string {
	id := uuid.New().String()
	db.lastSeq++
	db.seq[id] = db.lastSeq
	return id
}

// newer reports whether row a sorts before row b in a newest first listing.
func (db *DB) newer(aID string, aTime time.Time, bID string, bTime time.Time) bool {
	if aTime.Equal(bTime) {
		return db.seq[aID] > db.seq[bID]
	}
	return aTime.After(bTime)
}

// Repositories bundles a repository per domain, all sharing db.
type Repositories struct {
	Users         user.Repository
	Classrooms    classroom.Repository
	Tasks         task.Repository
	Texts         text.Repository
	Notifications notification.Repository
}

func NewRepositories(db *DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Classrooms:    NewClassroomRepository(db),
		Tasks:         NewTaskRepository(db),
		Texts:         NewTextRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

func strPtr(s string) *string {
	return &s
}
