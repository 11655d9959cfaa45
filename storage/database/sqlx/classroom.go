package sqlxrepos

import (
	"context"
	"time"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/user"
)

const classroomColumns = "id, owner_id, title, invitation_code, created_at"

type classroomRow struct {
	ID             string    `db:"id"`
	OwnerID        string    `db:"owner_id"`
	Title          string    `db:"title"`
	InvitationCode string    `db:"invitation_code"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r classroomRow) toClassroom() classroom.Classroom {
	return classroom.Classroom{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Title:          r.Title,
		InvitationCode: r.InvitationCode,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type summaryRow struct {
	classroomRow
	TasksCount        int `db:"tasks_count"`
	ParticipantsCount int `db:"participants_count"`
}

type classroomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) *classroomRepository {
	return &classroomRepository{exec: exec}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO classrooms (`+classroomColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.OwnerID, c.Title, c.InvitationCode, c.CreatedAt)
	if err != nil {
		return classroom.Classroom{}, trapUniqueErr(err, "classrooms_invitation_code_key", classroom.ErrCodeTaken, "inserting classroom")
	}
	return c, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	if !validID(id) {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	var row classroomRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+classroomColumns+" FROM classrooms WHERE id = $1", id)
	if err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom by ID")
	}
	return row.toClassroom(), nil
}

func (repo classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	var row classroomRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+classroomColumns+" FROM classrooms WHERE invitation_code = $1", code)
	if err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom by code")
	}
	return row.toClassroom(), nil
}

func (repo classroomRepository) QueryOwnedClassrooms(ctx context.Context, ownerID string) ([]classroom.Summary, error) {
	q := `
		SELECT c.id, c.owner_id, c.title, c.invitation_code, c.created_at,
			(SELECT COUNT(*) FROM tasks t WHERE t.classroom_id = c.id) AS tasks_count,
			(SELECT COUNT(*) FROM classroom_participants p WHERE p.classroom_id = c.id) AS participants_count
		FROM classrooms c`
	args := make([]interface{}, 0, 1)
	if ownerID != "" {
		if !validID(ownerID) {
			return []classroom.Summary{}, nil
		}
		q += " WHERE c.owner_id = $1"
		args = append(args, ownerID)
	}
	q += " ORDER BY c.created_at DESC"

	var rows []summaryRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "querying owned classrooms")
	}
	summaries := make([]classroom.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, classroom.Summary{
			Classroom:         r.toClassroom(),
			TasksCount:        r.TasksCount,
			ParticipantsCount: r.ParticipantsCount,
		})
	}
	return summaries, nil
}

func (repo classroomRepository) QueryJoinedClassrooms(ctx context.Context, minerID string) ([]classroom.Classroom, error) {
	if !validID(minerID) {
		return []classroom.Classroom{}, nil
	}
	var rows []classroomRow
	err := repo.exec.SelectContext(ctx, &rows, `
		SELECT c.id, c.owner_id, c.title, c.invitation_code, c.created_at
		FROM classrooms c JOIN classroom_participants p ON p.classroom_id = c.id
		WHERE p.miner_id = $1
		ORDER BY p.joined_at DESC, c.title`,
		minerID)
	if err != nil {
		return nil, wrapErr(err, "querying joined classrooms")
	}
	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, r := range rows {
		classrooms = append(classrooms, r.toClassroom())
	}
	return classrooms, nil
}

func (repo classroomRepository) DeleteClassroom(ctx context.Context, id string) error {
	if !validID(id) {
		return classroom.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, "DELETE FROM classrooms WHERE id = $1", id)
	if err != nil {
		return wrapErr(err, "deleting classroom")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrNotFound
	}
	return nil
}

func (repo classroomRepository) AddParticipant(ctx context.Context, classroomID, minerID string, joinedAt time.Time) error {
	_, err := repo.exec.ExecContext(ctx, `
		INSERT INTO classroom_participants (classroom_id, miner_id, joined_at) VALUES ($1, $2, $3)
		ON CONFLICT (classroom_id, miner_id) DO NOTHING`,
		classroomID, minerID, joinedAt.UTC())
	return wrapErr(err, "inserting participant")
}

func (repo classroomRepository) RemoveParticipant(ctx context.Context, classroomID, minerID string) error {
	if !validID(classroomID) || !validID(minerID) {
		return nil
	}
	_, err := repo.exec.ExecContext(ctx,
		"DELETE FROM classroom_participants WHERE classroom_id = $1 AND miner_id = $2",
		classroomID, minerID)
	return wrapErr(err, "deleting participant")
}

func (repo classroomRepository) IsParticipant(ctx context.Context, classroomID, minerID string) (bool, error) {
	if !validID(classroomID) || !validID(minerID) {
		return false, nil
	}
	var ok bool
	err := repo.exec.GetContext(ctx, &ok, `
		SELECT EXISTS (SELECT 1 FROM classroom_participants WHERE classroom_id = $1 AND miner_id = $2)`,
		classroomID, minerID)
	return ok, wrapErr(err, "checking participant")
}

func (repo classroomRepository) QueryParticipants(ctx context.Context, classroomID string) ([]user.User, error) {
	if !validID(classroomID) {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.exec.SelectContext(ctx, &rows, `
		SELECT u.id, u.name, u.email, u.role, u.is_active, u.password_hash, u.created_at, u.updated_at, u.last_login
		FROM users u JOIN classroom_participants p ON p.miner_id = u.id
		WHERE p.classroom_id = $1
		ORDER BY u.name`,
		classroomID)
	if err != nil {
		return nil, wrapErr(err, "querying participants")
	}
	return toUsers(rows), nil
}
