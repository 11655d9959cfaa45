package queuesvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
)

const jobColumns = "id, kind, payload, attempts, last_error, run_at, created_at"

// PostgresQueue stores jobs in the jobs table. Workers on several processes may share it.
type PostgresQueue struct {
	db           core.DBExecutor
	leaseTimeout time.Duration
	nowFunc      func() time.Time
}

var (
	_ core.JobQueue  = (*PostgresQueue)(nil) // interface compliance check
	_ core.JobSource = (*PostgresQueue)(nil)
	_ Reaper         = (*PostgresQueue)(nil)
)

func NewPostgresQueue(db core.DBExecutor, conf *core.Config) *PostgresQueue {
	return &PostgresQueue{
		db:           db,
		leaseTimeout: conf.Worker.LeaseTimeout,
		nowFunc:      time.Now,
	}
}

func (q *PostgresQueue) Enqueue(ctx context.Context, kind string, payload interface{}) (core.JobHandle, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return core.JobHandle{}, errors.Wrap(err, "encoding payload")
	}
	now := q.nowFunc().UTC()
	id := uuid.New().String()

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, payload, run_at, created_at) VALUES ($1, $2, $3, $4, $4)`,
		id, kind, string(data), now)
	if err != nil {
		return core.JobHandle{}, errors.Wrap(err, "inserting job")
	}
	return core.JobHandle{ID: id, Kind: kind}, nil
}

func (q *PostgresQueue) Reserve(ctx context.Context) (core.Job, error) {
	now := q.nowFunc().UTC()
	var job core.Job

	// jobs whose lease expired are handed out again
	err := q.db.GetContext(ctx, &job, `
		UPDATE jobs SET locked_at = $1, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE done_at IS NULL AND failed_at IS NULL AND run_at <= $1
				AND (locked_at IS NULL OR locked_at < $2)
			ORDER BY run_at, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		now, now.Add(-q.leaseTimeout))
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Job{}, core.ErrNoJob
		}
		return core.Job{}, errors.Wrap(err, "reserving job")
	}
	return job, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, job core.Job) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET done_at = $2, locked_at = NULL WHERE id = $1`,
		job.ID, q.nowFunc().UTC())
	return errors.Wrap(err, "completing job")
}

func (q *PostgresQueue) Fail(ctx context.Context, job core.Job, jobErr error, retryAt time.Time, final bool) error {
	var failedAt *time.Time
	if final {
		now := q.nowFunc().UTC()
		failedAt = &now
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET last_error = $2, run_at = $3, failed_at = $4, locked_at = NULL WHERE id = $1`,
		job.ID, jobErr.Error(), retryAt.UTC(), failedAt)
	return errors.Wrap(err, "failing job")
}

func (q *PostgresQueue) Purge(ctx context.Context, doneBefore time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM jobs WHERE done_at < $1`, doneBefore.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging jobs")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "purging jobs")
}
