package queuesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
)

// SyncQueueMock runs the handler of each job as soon as it is enqueued, in the caller's goroutine.
// Handler errors are recorded, never returned to the enqueuer.
type SyncQueueMock struct {
	mu       sync.Mutex
	handlers map[string]core.JobHandler
	jobs     []core.Job
	errs     map[string]error
}

var _ core.JobQueue = (*SyncQueueMock)(nil) // interface compliance check

func NewSyncQueueMock() *SyncQueueMock {
	return &SyncQueueMock{
		handlers: make(map[string]core.JobHandler),
		errs:     make(map[string]error),
	}
}

func (q *SyncQueueMock) Handle(kind string, fn core.JobHandler) {
	q.mu.Lock()
	q.handlers[kind] = fn
	q.mu.Unlock()
}

func (q *SyncQueueMock) Enqueue(ctx context.Context, kind string, payload interface{}) (core.JobHandle, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return core.JobHandle{}, errors.Wrap(err, "encoding payload")
	}
	now := time.Now().UTC()
	job := core.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Payload:   data,
		Attempts:  1,
		RunAt:     now,
		CreatedAt: now,
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	fn, ok := q.handlers[kind]
	q.mu.Unlock()

	if ok {
		// run synchronously
		if err = fn(ctx, job); err != nil {
			q.mu.Lock()
			q.errs[job.ID] = err
			q.mu.Unlock()
		}
	}
	return core.JobHandle{ID: job.ID, Kind: kind}, nil
}

// Jobs returns the jobs enqueued so far, optionally only those of the given kinds.
func (q *SyncQueueMock) Jobs(kinds ...string) []core.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]core.Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		if len(kinds) == 0 {
			jobs = append(jobs, j)
			continue
		}
		for _, k := range kinds {
			if j.Kind == k {
				jobs = append(jobs, j)
				break
			}
		}
	}
	return jobs
}

// Errors returns the handler errors by job ID.
func (q *SyncQueueMock) Errors() map[string]error {
	q.mu.Lock()
	defer q.mu.Unlock()

	errs := make(map[string]error, len(q.errs))
	for id, err := range q.errs {
		errs[id] = err
	}
	return errs
}

func (q *SyncQueueMock) Reset() {
	q.mu.Lock()
	q.jobs = nil
	q.errs = make(map[string]error)
	q.mu.Unlock()
}
