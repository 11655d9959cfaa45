package queuesvc

import (
	"github.com/pkg/errors"

	"github.com/textmine/backend/core"
)

// Queue backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Store is a job table: producers enqueue into it, workers reserve from it and the reaper purges it.
type Store interface {
	core.JobQueue
	core.JobSource
	Reaper
}

// NewStore returns the backend named by conf.Queue.
func NewStore(conf *core.Config, db core.DBExecutor) (Store, error) {
	switch conf.Queue {
	case BackendMemory:
		return NewMemoryQueue(conf), nil
	case BackendPostgres, "":
		if db == nil {
			return nil, errors.New("postgres queue requires a database")
		}
		return NewPostgresQueue(db, conf), nil
	}
	return nil, errors.Errorf("unknown queue backend %q", conf.Queue)
}

// InProcess reports whether jobs of the configured backend can only be consumed by the process that enqueued them.
func InProcess(conf *core.Config) bool {
	return conf.Queue == BackendMemory
}
