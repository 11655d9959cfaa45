package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

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
	inmemdb "github.com/textmine/backend/storage/database/inmem"
)

// NewValidator returns a validator with every custom tag and its English translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	task.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that neither prints nor reports.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// Env is a fully wired application backed by the in-memory database.
// Jobs run synchronously as soon as they are enqueued.
type Env struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger

	DB      *inmemdb.DB
	Repos   inmemdb.Repositories
	Queue   *queuesvc.SyncQueueMock
	MailSvc *emailsvc.ConsoleServiceMock

	Users         *user.Service
	Classrooms    *classroom.Service
	Tasks         *task.Service
	Texts         *text.Service
	Notifications *notification.Service
}

func NewEnv(conf *core.Config) *Env {
	if conf == nil {
		conf = core.NewTestConfig()
	}
	validate, translator := NewValidator()
	logger := NewLogger(conf)

	db := inmemdb.Open()
	repos := inmemdb.NewRepositories(db)
	queue := queuesvc.NewSyncQueueMock()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	dispatcher := dispatch.NewDispatcher(queue)

	env := &Env{
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
		DB:         db,
		Repos:      repos,
		Queue:      queue,
		MailSvc:    mailSvc,
	}
	env.Users = user.NewService(repos.Users)
	env.Classrooms = classroom.NewService(repos.Classrooms, validate, conf)
	env.Tasks = task.NewService(repos.Tasks, env.Classrooms, dispatcher, validate, logger)
	env.Texts = text.NewService(repos.Texts, env.Classrooms, env.Tasks, dispatcher, validate, logger)
	env.Notifications = notification.NewService(repos.Notifications)

	dispatch.NewHandlers(dispatcher, env.Users, env.Classrooms, env.Notifications, mailSvc, conf).Register(queue)
	return env
}

// CreateUser stores a user straight through the repository. Passwords are hashed with the minimum cost.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
		usr.PasswordHash = hash
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
