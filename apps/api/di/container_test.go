package di

import (
	"testing"

	"go.uber.org/dig"

	echoapi "github.com/textmine/backend/apps/api/echo"
	queuesvc "github.com/textmine/backend/services/queue"
)

func TestNew(t *testing.T) {
	c := New("TEST", dig.DryRun(true))

	err := c.Invoke(func(server *echoapi.Server, worker *queuesvc.Worker, store queuesvc.Store) {})
	if err != nil {
		t.Fatalf("container is missing a dependency: %v", err)
	}
}
