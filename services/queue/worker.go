// Package queuesvc provides the job queues behind core.JobQueue and the worker consuming them.
package queuesvc

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/textmine/backend/core"
)

// Reaper purges finished jobs.
type Reaper interface {
	Purge(ctx context.Context, doneBefore time.Time) (int64, error)
}

// Worker runs the handlers of the jobs reserved from a core.JobSource.
type Worker struct {
	source   core.JobSource
	conf     core.WorkerConfig
	logger   core.Logger
	handlers map[string]core.JobHandler
	nowFunc  func() time.Time
}

func NewWorker(source core.JobSource, conf *core.Config, logger core.Logger) *Worker {
	wc := conf.Worker
	if wc.Concurrency < 1 {
		wc.Concurrency = 1
	}
	if wc.MaxAttempts < 1 {
		wc.MaxAttempts = 1
	}
	if wc.PollInterval <= 0 {
		wc.PollInterval = time.Second
	}
	return &Worker{
		source:   source,
		conf:     wc,
		logger:   logger,
		handlers: make(map[string]core.JobHandler),
		nowFunc:  time.Now,
	}
}

// Handle binds a job kind to its handler. Not safe to call once Run started.
func (w *Worker) Handle(kind string, fn core.JobHandler) {
	w.handlers[kind] = fn
}

// Run processes jobs with conf.Worker.Concurrency goroutines until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.conf.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Start runs the worker in the background. The returned channel is closed
// once every in-flight job has finished after ctx is done.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			w.logger.Error(fmt.Sprintf("worker stopped: %v", err), err)
		}
	}()
	return done
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.conf.PollInterval)
	defer ticker.Stop()

	for {
		// drain runnable jobs before sleeping
		for ctx.Err() == nil {
			processed, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error(fmt.Sprintf("reserving job: %v", err), err)
				break
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce reserves and processes a single job. It reports false when no job was runnable.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.source.Reserve(ctx)
	if err != nil {
		if errors.Cause(err) == core.ErrNoJob {
			return false, nil
		}
		return false, err
	}
	w.process(ctx, job)
	return true, nil
}

func (w *Worker) process(ctx context.Context, job core.Job) {
	var err error
	fn, ok := w.handlers[job.Kind]
	if ok {
		err = w.run(ctx, fn, job)
	} else {
		err = errors.Errorf("no handler for job kind %q", job.Kind)
	}

	if err == nil {
		if cErr := w.source.Complete(ctx, job); cErr != nil {
			w.logger.Error(fmt.Sprintf("completing job %s: %v", job.ID, cErr), cErr)
		}
		return
	}

	final := !ok || job.Attempts >= w.conf.MaxAttempts
	retryAt := w.nowFunc().Add(time.Duration(job.Attempts) * w.conf.RetryBackoff)
	if final {
		w.logger.Error(fmt.Sprintf("job %s (%s) failed for good after %d attempts: %v", job.ID, job.Kind, job.Attempts, err), err)
	} else {
		w.logger.Warn(fmt.Sprintf("job %s (%s) failed, attempt %d: %v", job.ID, job.Kind, job.Attempts, err), err)
	}
	if fErr := w.source.Fail(ctx, job, err, retryAt, final); fErr != nil {
		w.logger.Error(fmt.Sprintf("failing job %s: %v", job.ID, fErr), fErr)
	}
}

// run calls fn, turning a panic into an error.
func (w *Worker) run(ctx context.Context, fn core.JobHandler, job core.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx, job)
}

// StartReaper purges jobs finished more than conf.Worker.RetentionDays ago on conf.Worker.ReaperSchedule.
// The returned cron must be stopped by the caller.
func (w *Worker) StartReaper(reaper Reaper) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(w.conf.ReaperSchedule, func() {
		w.reap(context.Background(), reaper)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scheduling job reaper")
	}
	c.Start()
	return c, nil
}

func (w *Worker) reap(ctx context.Context, reaper Reaper) {
	retention := time.Duration(w.conf.RetentionDays) * 24 * time.Hour
	n, err := reaper.Purge(ctx, w.nowFunc().Add(-retention))
	if err != nil {
		w.logger.Error(fmt.Sprintf("purging jobs: %v", err), err)
		return
	}
	if n > 0 {
		w.logger.Info(fmt.Sprintf("purged %d finished jobs", n))
	}
}
