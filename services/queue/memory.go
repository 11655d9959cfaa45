package queuesvc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
)

type memoryJob struct {
	core.Job
	lockedAt time.Time
	doneAt   time.Time
	failed   bool
}

// MemoryQueue keeps jobs in process memory. Jobs are lost when the process stops.
type MemoryQueue struct {
	mu           sync.Mutex
	jobs         map[string]*memoryJob
	leaseTimeout time.Duration
	nowFunc      func() time.Time
}

var (
	_ core.JobQueue  = (*MemoryQueue)(nil) // interface compliance check
	_ core.JobSource = (*MemoryQueue)(nil)
	_ Reaper         = (*MemoryQueue)(nil)
)

func NewMemoryQueue(conf *core.Config) *MemoryQueue {
	return &MemoryQueue{
		jobs:         make(map[string]*memoryJob),
		leaseTimeout: conf.Worker.LeaseTimeout,
		nowFunc:      time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, kind string, payload interface{}) (core.JobHandle, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return core.JobHandle{}, errors.Wrap(err, "encoding payload")
	}
	now := q.nowFunc().UTC()
	job := &memoryJob{Job: core.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Payload:   data,
		RunAt:     now,
		CreatedAt: now,
	}}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()
	return core.JobHandle{ID: job.ID, Kind: kind}, nil
}

func (q *MemoryQueue) Reserve(_ context.Context) (core.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.nowFunc().UTC()
	runnable := make([]*memoryJob, 0)
	for _, j := range q.jobs {
		if !j.doneAt.IsZero() || j.failed || j.RunAt.After(now) {
			continue
		}
		if !j.lockedAt.IsZero() && now.Sub(j.lockedAt) < q.leaseTimeout {
			continue
		}
		runnable = append(runnable, j)
	}
	if len(runnable) == 0 {
		return core.Job{}, core.ErrNoJob
	}
	sort.Slice(runnable, func(i, k int) bool {
		if runnable[i].RunAt.Equal(runnable[k].RunAt) {
			return runnable[i].CreatedAt.Before(runnable[k].CreatedAt)
		}
		return runnable[i].RunAt.Before(runnable[k].RunAt)
	})

	j := runnable[0]
	j.lockedAt = now
	j.Attempts++
	return j.Job, nil
}

func (q *MemoryQueue) Complete(_ context.Context, job core.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[job.ID]
	if !ok {
		return core.ErrNoJob
	}
	j.doneAt = q.nowFunc().UTC()
	j.lockedAt = time.Time{}
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, job core.Job, jobErr error, retryAt time.Time, final bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[job.ID]
	if !ok {
		return core.ErrNoJob
	}
	j.LastError = jobErr.Error()
	j.RunAt = retryAt.UTC()
	j.lockedAt = time.Time{}
	j.failed = final
	return nil
}

func (q *MemoryQueue) Purge(_ context.Context, doneBefore time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int64
	for id, j := range q.jobs {
		if !j.doneAt.IsZero() && j.doneAt.Before(doneBefore) {
			delete(q.jobs, id)
			n++
		}
	}
	return n, nil
}

// Pending returns the number of jobs neither done nor failed for good.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	for _, j := range q.jobs {
		if j.doneAt.IsZero() && !j.failed {
			n++
		}
	}
	return n
}
