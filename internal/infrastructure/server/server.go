package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/api/middleware"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/config"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/conduit/internal/logging"
)

// Options supplies the shared infrastructure
type Options struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

// Server hosts the dispatcher behind a gin engine
type Server struct {
	config  *config.Config
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	logger  *logging.Logger
}

// New creates the host for dispatcher
func New(cfg *config.Config, dispatcher http.Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("server")

	if !cfg.Logging.Development && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	if opts.Tracer != nil {
		router.Use(tracing.HTTPMiddleware(opts.Tracer))
	}
	if opts.Metrics != nil {
		router.Use(monitoring.Middleware(opts.Metrics))
		router.GET(cfg.Server.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}
	if cfg.CORS.Enabled {
		logger.Info("Host CORS enabled", zap.Strings("origins", cfg.CORS.Origins))
		router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.Origins...)))
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.NewLimiters(0), middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{config: cfg, router: router, logger: logger}
	router.NoRoute(s.static(), gin.WrapH(dispatcher))

	s.handler = router
	if cfg.Server.Gzip {
		s.handler = gzhttp.GzipHandler(router)
	}
	s.http = &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        s.handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return s
}

// static serves files of the document root under the static prefix. Other
// requests continue to the dispatcher.
func (s *Server) static() gin.HandlerFunc {
	srv := s.config.Server
	prefix := "/" + strings.Trim(srv.StaticPrefix, "/")

	return func(c *gin.Context) {
		if !srv.EnableStatic || srv.DocumentRoot == "" {
			return
		}
		method := c.Request.Method
		if method != http.MethodGet && method != http.MethodHead {
			return
		}
		p := path.Clean("/" + c.Request.URL.Path)
		if p != prefix && !strings.HasPrefix(p, prefix+"/") {
			return
		}

		file := filepath.Join(srv.DocumentRoot, filepath.FromSlash(p))
		info, err := os.Stat(file)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		c.File(file)
		c.Abort()
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down server", zap.Error(err))
		return err
	}
	_ = s.logger.Sync()
	return nil
}
