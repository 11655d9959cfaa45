// Package di wires the application services into a dig container shared by the API and the worker.
package di

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/textmine/backend/apps/api/echo"
	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/dispatch"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
	emailsvc "github.com/textmine/backend/services/email"
	logsvc "github.com/textmine/backend/services/logger"
	queuesvc "github.com/textmine/backend/services/queue"
	"github.com/textmine/backend/storage/database"
	sqlxrepos "github.com/textmine/backend/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.New("DB", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) (
	user.Repository,
	classroom.Repository,
	task.Repository,
	text.Repository,
	notification.Repository,
) {
	repos := sqlxrepos.NewRepositories(db)
	return repos.Users, repos.Classrooms, repos.Tasks, repos.Texts, repos.Notifications
}

func newQueueStore(conf *core.Config, db *sqlx.DB, logger core.Logger) queuesvc.Store {
	store, err := queuesvc.NewStore(conf, db)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up job queue: %v", err), err)
	}
	return store
}

func newJobQueue(store queuesvc.Store) core.JobQueue {
	return store
}

func newNotifiers(d *dispatch.Dispatcher) (task.Notifier, text.Notifier) {
	return d, d
}

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	task.InitValidators(validate, translator)
	return validate, translator
}

func newWorker(store queuesvc.Store, conf *core.Config, logger core.Logger, handlers *dispatch.Handlers) *queuesvc.Worker {
	w := queuesvc.NewWorker(store, conf, logger)
	handlers.Register(w)
	return w
}

// New returns a new dependency injection dig.Container.
// Loggers of the process are prefixed with `name`.
func New(name string, opts ...dig.Option) *dig.Container {
	c := dig.New(opts...)

	must(c.Provide(core.NewConfig))
	must(c.Provide(func(conf *core.Config) core.Logger { return logsvc.New(name, conf) }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newQueueStore))
	must(c.Provide(newJobQueue))
	must(c.Provide(dispatch.NewDispatcher))
	must(c.Provide(newNotifiers))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(classroom.NewService))
	must(c.Provide(task.NewService))
	must(c.Provide(text.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(dispatch.NewHandlers))
	must(c.Provide(newWorker))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
