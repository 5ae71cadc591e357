package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger core.Logger
		// SignalShutdown is called when an unrecoverable error is caught;
		// the main program is expected to initiate a graceful shutdown.
		SignalShutdown func()

		UserSvc          user.Service
		FamilySvc        family.Service
		ProgramSvc       program.Service
		EnrollmentSvc    enrollment.Service
		ParticipationSvc participation.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
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

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerFamilyAPI(v1, jwt, s.opts.FamilySvc, s.opts.UserSvc)
	registerProgramAPI(v1, jwt, s.opts.ProgramSvc, s.opts.UserSvc)
	registerBookingAPI(v1, jwt, s.opts.EnrollmentSvc, s.opts.UserSvc)
	registerParticipationAPI(v1, jwt, s.opts.ParticipationSvc, s.opts.FamilySvc, s.opts.UserSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Klass Hero API!")
}
