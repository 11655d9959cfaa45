package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/user"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.classrooms {
		if other.InvitationCode == c.InvitationCode {
			return classroom.Classroom{}, classroom.ErrCodeTaken
		}
	}
	if c.ID == "" {
		c.ID = repo.db.newID()
	} else if _, ok := repo.db.classrooms[c.ID]; ok {
		return classroom.Classroom{}, classroom.ErrCodeTaken
	}
	repo.db.classrooms[c.ID] = &c
	return c, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.classrooms[id]; ok {
		return *c, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByCode(_ context.Context, code string) (classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.classrooms {
		if c.InvitationCode == code {
			return *c, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryOwnedClassrooms(_ context.Context, ownerID string) ([]classroom.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	summaries := make([]classroom.Summary, 0)
	for _, c := range repo.db.classrooms {
		if ownerID != "" && c.OwnerID != ownerID {
			continue
		}
		s := classroom.Summary{Classroom: *c}
		for _, t := range repo.db.tasks {
			if t.InClassroom(c.ID) {
				s.TasksCount++
			}
		}
		for key := range repo.db.participants {
			if key.classroomID == c.ID {
				s.ParticipantsCount++
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		return repo.db.newer(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
	return summaries, nil
}

func (repo *classroomRepository) QueryJoinedClassrooms(_ context.Context, minerID string) ([]classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	type joined struct {
		c        classroom.Classroom
		joinedAt time.Time
	}
	rows := make([]joined, 0)
	for key, joinedAt := range repo.db.participants {
		if key.minerID != minerID {
			continue
		}
		if c, ok := repo.db.classrooms[key.classroomID]; ok {
			rows = append(rows, joined{c: *c, joinedAt: joinedAt})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].joinedAt.Equal(rows[j].joinedAt) {
			return rows[i].c.Title < rows[j].c.Title
		}
		return rows[i].joinedAt.After(rows[j].joinedAt)
	})

	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, r := range rows {
		classrooms = append(classrooms, r.c)
	}
	return classrooms, nil
}

// DeleteClassroom drops its participants; its tasks and texts lose the reference.
func (repo *classroomRepository) DeleteClassroom(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classrooms[id]; !ok {
		return classroom.ErrNotFound
	}
	delete(repo.db.classrooms, id)
	for key := range repo.db.participants {
		if key.classroomID == id {
			delete(repo.db.participants, key)
		}
	}
	for _, t := range repo.db.tasks {
		if t.InClassroom(id) {
			t.ClassroomID = nil
		}
	}
	for _, txt := range repo.db.texts {
		if txt.InClassroom(id) {
			txt.ClassroomID = nil
		}
	}
	return nil
}

func (repo *classroomRepository) AddParticipant(_ context.Context, classroomID, minerID string, joinedAt time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classrooms[classroomID]; !ok {
		return classroom.ErrNotFound
	}
	if _, ok := repo.db.users[minerID]; !ok {
		return user.ErrNotFound
	}
	key := participantKey{classroomID: classroomID, minerID: minerID}
	if _, ok := repo.db.participants[key]; !ok {
		repo.db.participants[key] = joinedAt
	}
	return nil
}

func (repo *classroomRepository) RemoveParticipant(_ context.Context, classroomID, minerID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.participants, participantKey{classroomID: classroomID, minerID: minerID})
	return nil
}

func (repo *classroomRepository) IsParticipant(_ context.Context, classroomID, minerID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.participants[participantKey{classroomID: classroomID, minerID: minerID}]
	return ok, nil
}

func (repo *classroomRepository) QueryParticipants(_ context.Context, classroomID string) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for key := range repo.db.participants {
		if key.classroomID != classroomID {
			continue
		}
		if usr, ok := repo.db.users[key.minerID]; ok {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}
