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
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core"
	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
)

type (
	// Pinger reports whether the backing store is reachable.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	ServerDeps struct {
		Conf             *core.Config
		Logger           core.Logger
		DB               Pinger
		CertificationSvc certification.Service
		ScheduleSvc      exam.ScheduleService
		ApplicationSvc   exam.ApplicationService
		Validate         *validator.Validate
		Translator       ut.Translator
		DisableReqLogs   bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	v1.GET("/health", s.health)

	registerCertificationAPI(v1, s.deps.CertificationSvc, s.deps.Validate)
	registerScheduleAPI(v1, s.deps.ScheduleSvc)
	registerApplicationAPI(v1, s.deps.ApplicationSvc)
	registerResultAPI(v1, s.deps.ApplicationSvc)
}

// Start blocks serving HTTP; a listener failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health check: database unreachable", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.deps.Conf.Build})
}
