package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	"github.com/textmine/backend/apps/api/di"
	"github.com/textmine/backend/core"
	queuesvc "github.com/textmine/backend/services/queue"
)

func main() {
	c := di.New("WORKER")

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		store queuesvc.Store,
		worker *queuesvc.Worker,
	) {
		logger.Info(fmt.Sprintf("Worker initializing : version %q", conf.Build))

		if queuesvc.InProcess(conf) {
			logger.Fatal(fmt.Sprintf("queue %q can only be consumed by the API process", conf.Queue))
		}
		if err := core.ParseEmailTemplates(); err != nil {
			logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
		}

		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", err)
			}
		}()
		defer logger.Info("Worker stopped")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reaper, err := worker.StartReaper(store)
		if err != nil {
			logger.Fatal(fmt.Sprintf("starting job reaper: %v", err), err)
		}

		logger.Info(fmt.Sprintf("consuming jobs with %d goroutines", conf.Worker.Concurrency))
		if err = worker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error(fmt.Sprintf("worker stopped: %v", err), err)
		}

		// wait for a running purge
		<-reaper.Stop().Done()
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
