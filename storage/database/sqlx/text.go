package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/text"
)

const (
	textColumns      = "id, creator_id, task_id, classroom_id, content, created_at"
	moderatedColumns = "id, original_id, moderator_id, content, created_at"
)

type textRow struct {
	ID          string         `db:"id"`
	CreatorID   string         `db:"creator_id"`
	TaskID      sql.NullString `db:"task_id"`
	ClassroomID sql.NullString `db:"classroom_id"`
	Content     string         `db:"content"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r textRow) toText() text.Text {
	return text.Text{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		TaskID:      stringPtr(r.TaskID),
		ClassroomID: stringPtr(r.ClassroomID),
		Content:     r.Content,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type moderatedRow struct {
	ID          string    `db:"id"`
	OriginalID  string    `db:"original_id"`
	ModeratorID string    `db:"moderator_id"`
	Content     string    `db:"content"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r moderatedRow) toModeratedText() text.ModeratedText {
	return text.ModeratedText{
		ID:          r.ID,
		OriginalID:  r.OriginalID,
		ModeratorID: r.ModeratorID,
		Content:     r.Content,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// resultRow is a text left-joined with its moderation.
type resultRow struct {
	textRow
	ModID          sql.NullString `db:"mod_id"`
	ModModeratorID sql.NullString `db:"mod_moderator_id"`
	ModContent     sql.NullString `db:"mod_content"`
	ModCreatedAt   sql.NullTime   `db:"mod_created_at"`
}

func (r resultRow) toResult() text.Result {
	res := text.Result{Text: r.toText()}
	if r.ModID.Valid {
		res.Moderated = &text.ModeratedText{
			ID:          r.ModID.String,
			OriginalID:  r.ID,
			ModeratorID: r.ModModeratorID.String,
			Content:     r.ModContent.String,
			CreatedAt:   r.ModCreatedAt.Time.UTC(),
		}
	}
	return res
}

func toTexts(rows []textRow) []text.Text {
	texts := make([]text.Text, 0, len(rows))
	for _, r := range rows {
		texts = append(texts, r.toText())
	}
	return texts
}

type textRepository struct {
	exec core.DBExecutor
}

var _ text.Repository = (*textRepository)(nil) // interface compliance check

func NewTextRepository(exec core.DBExecutor) *textRepository {
	return &textRepository{exec: exec}
}

func (repo textRepository) CreateText(ctx context.Context, t text.Text) (text.Text, error) {
	t.ID = newID()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO texts (`+textColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.CreatorID, nullString(t.TaskID), nullString(t.ClassroomID), t.Content, t.CreatedAt.UTC())
	if err != nil {
		return text.Text{}, trapUniqueErr(err, "texts_creator_task_key", text.ErrAlreadySubmitted, "inserting text")
	}
	return t, nil
}

func (repo textRepository) GetTextByID(ctx context.Context, id string) (text.Text, error) {
	if !validID(id) {
		return text.Text{}, text.ErrNotFound
	}
	var row textRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+textColumns+" FROM texts WHERE id = $1", id); err != nil {
		return text.Text{}, trapNoRowsErr(err, text.ErrNotFound, "finding text by ID")
	}
	return row.toText(), nil
}

func (repo textRepository) GetTextByCreatorAndTask(ctx context.Context, creatorID, taskID string) (text.Text, error) {
	if !validID(creatorID) || !validID(taskID) {
		return text.Text{}, text.ErrNotFound
	}
	var row textRow
	err := repo.exec.GetContext(ctx, &row,
		"SELECT "+textColumns+" FROM texts WHERE creator_id = $1 AND task_id = $2", creatorID, taskID)
	if err != nil {
		return text.Text{}, trapNoRowsErr(err, text.ErrNotFound, "finding text by creator and task")
	}
	return row.toText(), nil
}

func (repo textRepository) QueryTexts(ctx context.Context, filter *text.QueryFilter) ([]text.Text, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter != nil {
		for col, val := range map[string]string{
			"creator_id":   filter.CreatorID,
			"classroom_id": filter.ClassroomID,
			"task_id":      filter.TaskID,
		} {
			if val == "" {
				continue
			}
			if !validID(val) {
				return []text.Text{}, nil
			}
			args = append(args, val)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}

	q := "SELECT " + textColumns + " FROM texts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	var rows []textRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "querying texts")
	}
	return toTexts(rows), nil
}

func (repo textRepository) QueryPendingTexts(ctx context.Context, classroomID string) ([]text.Text, error) {
	if !validID(classroomID) {
		return []text.Text{}, nil
	}
	var rows []textRow
	err := repo.exec.SelectContext(ctx, &rows, `
		SELECT t.id, t.creator_id, t.task_id, t.classroom_id, t.content, t.created_at
		FROM texts t
		WHERE t.classroom_id = $1
			AND NOT EXISTS (SELECT 1 FROM moderated_texts m WHERE m.original_id = t.id)
		ORDER BY t.created_at`,
		classroomID)
	if err != nil {
		return nil, wrapErr(err, "querying pending texts")
	}
	return toTexts(rows), nil
}

func (repo textRepository) QueryResults(ctx context.Context, creatorID, classroomID string) ([]text.Result, error) {
	if !validID(creatorID) || !validID(classroomID) {
		return []text.Result{}, nil
	}
	var rows []resultRow
	err := repo.exec.SelectContext(ctx, &rows, `
		SELECT t.id, t.creator_id, t.task_id, t.classroom_id, t.content, t.created_at,
			m.id AS mod_id, m.moderator_id AS mod_moderator_id, m.content AS mod_content, m.created_at AS mod_created_at
		FROM texts t LEFT JOIN moderated_texts m ON m.original_id = t.id
		WHERE t.creator_id = $1 AND t.classroom_id = $2
		ORDER BY t.created_at DESC`,
		creatorID, classroomID)
	if err != nil {
		return nil, wrapErr(err, "querying results")
	}
	results := make([]text.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toResult())
	}
	return results, nil
}

func (repo textRepository) CreateModeratedText(ctx context.Context, m text.ModeratedText) (text.ModeratedText, error) {
	m.ID = newID()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO moderated_texts (`+moderatedColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.OriginalID, m.ModeratorID, m.Content, m.CreatedAt.UTC())
	if err != nil {
		return text.ModeratedText{}, trapUniqueErr(err, "moderated_texts_original_key", text.ErrAlreadyModerated, "inserting moderated text")
	}
	return m, nil
}

func (repo textRepository) GetModeratedTextByID(ctx context.Context, id string) (text.ModeratedText, error) {
	if !validID(id) {
		return text.ModeratedText{}, text.ErrModeratedNotFound
	}
	var row moderatedRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+moderatedColumns+" FROM moderated_texts WHERE id = $1", id)
	if err != nil {
		return text.ModeratedText{}, trapNoRowsErr(err, text.ErrModeratedNotFound, "finding moderated text by ID")
	}
	return row.toModeratedText(), nil
}

func (repo textRepository) GetModeratedTextByOriginal(ctx context.Context, originalID string) (text.ModeratedText, error) {
	if !validID(originalID) {
		return text.ModeratedText{}, text.ErrModeratedNotFound
	}
	var row moderatedRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+moderatedColumns+" FROM moderated_texts WHERE original_id = $1", originalID)
	if err != nil {
		return text.ModeratedText{}, trapNoRowsErr(err, text.ErrModeratedNotFound, "finding moderated text by original")
	}
	return row.toModeratedText(), nil
}

func (repo textRepository) QueryModeratedTexts(ctx context.Context, classroomID string) ([]text.ModeratedText, error) {
	q := `
		SELECT m.id, m.original_id, m.moderator_id, m.content, m.created_at
		FROM moderated_texts m`
	args := make([]interface{}, 0, 1)
	if classroomID != "" {
		if !validID(classroomID) {
			return []text.ModeratedText{}, nil
		}
		q += " JOIN texts t ON t.id = m.original_id WHERE t.classroom_id = $1"
		args = append(args, classroomID)
	}
	q += " ORDER BY m.created_at DESC"

	var rows []moderatedRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "querying moderated texts")
	}
	mods := make([]text.ModeratedText, 0, len(rows))
	for _, r := range rows {
		mods = append(mods, r.toModeratedText())
	}
	return mods, nil
}
