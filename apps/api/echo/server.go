// Package echoapi exposes the JSON API: authentication, the admin panel
// (users, settings, reports, announcements) and the registrar surface.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/finance"
	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/report"
	"github.com/tsfaye/sims/core/settings"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Logger        core.Logger
		UserSvc       *user.Service
		SubjectSvc    *subject.Service
		NotifSvc      *notification.Service
		SettingsStore settings.Store
		GradeRepo     grade.Repository
		PaymentRepo   finance.Repository
		Reports       *report.Builder
		Renderers     report.Registry
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Renderers == nil {
		opts.Renderers = report.DefaultRegistry()
	}
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerAdminAPI(v1, jwt, s.opts)
	registerRegistrarAPI(v1, jwt, s.opts)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.app.Logger.Fatal(s.app.Start(s.opts.Addr))
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown triggers a graceful shutdown from within a request.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
