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
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

type Server struct {
	conf       *core.Config
	logger     core.Logger
	db         core.Pinger
	userSvc    *user.Service
	studentSvc *student.Service

	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	db core.Pinger,
	userSvc *user.Service,
	studentSvc *student.Service,
) *Server {
	s := &Server{
		conf:       conf,
		logger:     logger,
		db:         db,
		userSvc:    userSvc,
		studentSvc: studentSvc,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.SignalShutdown)
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(middleware.BodyLimit("1M"))

	s.app.GET("/health", s.health)

	api := s.app.Group("/api")
	auth := authMiddleware(s.userSvc)

	var authLimits []echo.MiddlewareFunc
	if s.conf.Server.AuthRateLimit > 0 {
		authLimits = append(authLimits, newRateLimiter(s.conf.Server.AuthRateLimit))
	}
	registerAuthAPI(api.Group("/auth", authLimits...), auth, s.userSvc)
	registerStudentAPI(api.Group("/students", auth), s.studentSvc)
}

// newRateLimiter limits the requests per second of every client IP.
func newRateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(perSecond), Burst: burst},
	))
}

// Start blocks until the server stops; failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

// ListenForSignals forwards SIGINT and SIGTERM to ShutdownSignal.
func (s *Server) ListenForSignals() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
}

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}
