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

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/announcement"
	"github.com/mwalimu/darasa/core/assignment"
	"github.com/mwalimu/darasa/core/chat"
	"github.com/mwalimu/darasa/core/device"
	"github.com/mwalimu/darasa/core/hub"
	"github.com/mwalimu/darasa/core/subject"
	"github.com/mwalimu/darasa/core/submission"
	"github.com/mwalimu/darasa/core/user"
	"github.com/mwalimu/darasa/storage/files"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

type (
	ServerDeps struct {
		Conf    *core.Config
		Logger  core.Logger
		Hub     *hub.Hub
		Uploads *files.Store

		UserSvc         *user.Service
		SubjectSvc      *subject.Service
		AssignmentSvc   *assignment.Service
		SubmissionSvc   *submission.Service
		ChatSvc         *chat.Service
		AnnouncementSvc *announcement.Service
		DeviceSvc       *device.Service

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps         ServerDeps
		app          *echo.Echo
		errChan      chan error
		shutdownChan chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:         deps,
		app:          echo.New(),
		errChan:      make(chan error, 1),
		shutdownChan: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownChan, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	initJWTConfig(conf)

	s.app.GET("/", home)
	s.app.Static("/uploads", s.deps.Uploads.Dir())

	registerHubAPI(s.app, s.deps.Hub)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps)
	registerSubjectAPI(v1, jwt, s.deps)
	registerAssignmentAPI(v1, jwt, s.deps)
	registerSubmissionAPI(v1, jwt, s.deps)
	registerChatAPI(v1, jwt, s.deps)
	registerAnnouncementAPI(v1, jwt, s.deps)
	registerDeviceAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errChan <- err
	}
}

func (s *server) Errors() <-chan error { return s.errChan }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdownChan }

// signalShutdown forces a graceful shutdown; used on unrecoverable errors.
func (s *server) signalShutdown() {
	s.shutdownChan <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
