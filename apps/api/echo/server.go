package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
)

type (
	// Deps are the services the API is built on.
	Deps struct {
		dig.In

		Validate        *validator.Validate
		Translator      ut.Translator
		UserSvc         *user.Service
		ClassroomSvc    *classroom.Service
		TaskSvc         *task.Service
		TextSvc         *text.Service
		NotificationSvc *notification.Service
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     Deps
		app      *echo.Echo
		shutdown chan os.Signal
		errs     chan error
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errs:     make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := jwtMiddleware(s.conf, s.deps.UserSvc)

	registerUserAPI(v1, auth, s.conf, s.deps)
	registerAdminAPI(v1.Group("/admin", auth, roleMiddleware(user.RoleAdmin)), s.deps)
	registerModeratorAPI(v1.Group("/moderator", auth, roleMiddleware(user.RoleModerator)), s.deps)
	registerMinerAPI(v1.Group("/miner", auth, roleMiddleware(user.RoleMiner)), s.deps)
	registerNotificationAPI(v1.Group("/notifications", auth), s.deps)
}

// Start listens on conf.Server.Address until the server is shut down. Listen errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
