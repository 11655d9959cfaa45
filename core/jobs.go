package core

import (
	"context"
	"encoding/json"
	"time"
)

type (
	// Job is a unit of asynchronous work, delivered at least once.
	Job struct {
		ID        string          `json:"id" db:"id"`
		Kind      string          `json:"kind" db:"kind"`
		Payload   json.RawMessage `json:"payload" db:"payload"`
		Attempts  int             `json:"attempts" db:"attempts"`
		LastError string          `json:"last_error" db:"last_error"`
		RunAt     time.Time       `json:"run_at" db:"run_at"`
		CreatedAt time.Time       `json:"created_at" db:"created_at"`
	}

	// JobHandle identifies an enqueued job. Enqueued jobs cannot be cancelled.
	JobHandle struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}

	// JobQueue accepts work for later processing.
	JobQueue interface {
		Enqueue(ctx context.Context, kind string, payload interface{}) (JobHandle, error)
	}

	// JobSource hands out jobs to workers and records their outcome.
	JobSource interface {
		// Reserve leases the next runnable job. It returns ErrNoJob when nothing is runnable.
		Reserve(ctx context.Context) (Job, error)
		Complete(ctx context.Context, job Job) error
		// Fail records jobErr; the job runs again at retryAt unless it ran out of attempts.
		Fail(ctx context.Context, job Job, jobErr error, retryAt time.Time, final bool) error
	}

	JobHandler func(ctx context.Context, job Job) error
)

var ErrNoJob = NewNotFoundError("job")

// DecodePayload unmarshals a job's payload into v.
func (j Job) DecodePayload(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}
