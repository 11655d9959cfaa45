package queuesvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmine/backend/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type payload struct {
	N int `json:"n"`
}

func newTestWorker() (*Worker, *MemoryQueue) {
	conf := core.NewTestConfig()
	q := NewMemoryQueue(conf)
	return NewWorker(q, conf, nopLogger{}), q
}

func TestWorker_RunOnce(t *testing.T) {
	ctx := context.Background()
	w, q := newTestWorker()

	var got []int
	w.Handle("test.ok", func(_ context.Context, job core.Job) error {
		var p payload
		if err := job.DecodePayload(&p); err != nil {
			return err
		}
		got = append(got, p.N)
		return nil
	})

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = q.Enqueue(ctx, "test.ok", payload{N: 1})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "test.ok", payload{N: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Pending())

	for i := 0; i < 2; i++ {
		processed, err = w.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}
	assert.ElementsMatch(t, []int{1, 2}, got)
	assert.Equal(t, 0, q.Pending())
}

func TestWorker_Retry(t *testing.T) {
	ctx := context.Background()
	w, q := newTestWorker()

	var attempts []int
	w.Handle("test.flaky", func(_ context.Context, job core.Job) error {
		attempts = append(attempts, job.Attempts)
		if job.Attempts < 2 {
			return errors.New("boom")
		}
		return nil
	})

	_, err := q.Enqueue(ctx, "test.flaky", payload{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		processed, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, 0, q.Pending())
}

func TestWorker_GiveUp(t *testing.T) {
	ctx := context.Background()
	w, q := newTestWorker()

	var calls int
	w.Handle("test.broken", func(context.Context, core.Job) error {
		calls++
		panic("unrecoverable")
	})

	_, err := q.Enqueue(ctx, "test.broken", payload{})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "test.unknown", payload{})
	require.NoError(t, err)

	for {
		processed, err := w.RunOnce(ctx)
		require.NoError(t, err)
		if !processed {
			break
		}
	}
	assert.Equal(t, core.NewTestConfig().Worker.MaxAttempts, calls)
	assert.Equal(t, 0, q.Pending())
}

func TestWorker_Run(t *testing.T) {
	w, q := newTestWorker()

	var wg sync.WaitGroup
	wg.Add(3)
	w.Handle("test.ok", func(context.Context, core.Job) error {
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, "test.ok", payload{N: i})
		require.NoError(t, err)
	}
	wg.Wait()
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestMemoryQueue_Lease(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	q := NewMemoryQueue(conf)
	now := time.Now()
	q.nowFunc = func() time.Time { return now }

	_, err := q.Enqueue(ctx, "test.ok", payload{})
	require.NoError(t, err)

	job, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)

	_, err = q.Reserve(ctx)
	assert.Equal(t, core.ErrNoJob, err)

	// lease expired: the job is handed out again
	now = now.Add(conf.Worker.LeaseTimeout + time.Second)
	job, err = q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempts)

	require.NoError(t, q.Complete(ctx, job))
	n, err := q.Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = q.Purge(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyncQueueMock(t *testing.T) {
	ctx := context.Background()
	q := NewSyncQueueMock()

	var got int
	q.Handle("test.ok", func(_ context.Context, job core.Job) error {
		var p payload
		_ = job.DecodePayload(&p)
		got = p.N
		return nil
	})
	q.Handle("test.fail", func(context.Context, core.Job) error { return errors.New("boom") })

	_, err := q.Enqueue(ctx, "test.ok", payload{N: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	h, err := q.Enqueue(ctx, "test.fail", payload{})
	require.NoError(t, err)
	assert.Len(t, q.Jobs(), 2)
	assert.Len(t, q.Jobs("test.fail"), 1)
	assert.Contains(t, q.Errors(), h.ID)

	q.Reset()
	assert.Empty(t, q.Jobs())
	assert.Empty(t, q.Errors())
}

func TestNewStore(t *testing.T) {
	conf := core.NewTestConfig()

	conf.Queue = BackendMemory
	store, err := NewStore(conf, nil)
	if err != nil {
		t.Fatalf("NewStore(memory) error = %v", err)
	}
	if _, ok := store.(*MemoryQueue); !ok {
		t.Errorf("NewStore(memory) = %T, want *MemoryQueue", store)
	}
	if !InProcess(conf) {
		t.Error("InProcess(memory) = false, want true")
	}

	conf.Queue = BackendPostgres
	if _, err = NewStore(conf, nil); err == nil {
		t.Error("NewStore(postgres) without a database should fail")
	}
	if InProcess(conf) {
		t.Error("InProcess(postgres) = true, want false")
	}

	conf.Queue = "kafka"
	if _, err = NewStore(conf, nil); err == nil {
		t.Error("NewStore(kafka) should fail")
	}
}

func TestWorker_Start_waitsForInFlightJob(t *testing.T) {
	w, q := newTestWorker()

	started := make(chan struct{})
	release := make(chan struct{})
	w.Handle("test.slow", func(context.Context, core.Job) error {
		close(started)
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := q.Enqueue(ctx, "test.slow", payload{N: 1})
	require.NoError(t, err)

	done := w.Start(ctx)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job was not picked up")
	}
	cancel()

	select {
	case <-done:
		t.Fatal("worker stopped while a job was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
