package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/api/middleware"
	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/config"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/conduit/internal/kernel"
	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/internal/routing"
	"github.com/GriffinCanCode/conduit/internal/view"
	"github.com/GriffinCanCode/conduit/internal/worker"
)

// Options supplies the shared infrastructure
type Options struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
	// Views overrides the views directory of the config
	Views fs.FS
}

// App is the assembled application
type App struct {
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	registry  *container.Registry
	kernel    *kernel.Kernel
	views     *view.Engine
	publisher *worker.Publisher
	limiters  *middleware.Limiters
	started   time.Time
}

// New builds the registry, the kernel and the routes
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   opts.Metrics,
		registry:  container.NewRegistry(container.WithStrictAssertions(cfg.App.Strict)),
		publisher: worker.NewPublisher(cfg.Worker.StoragePath, opts.Metrics),
		limiters:  middleware.NewLimiters(5 * time.Minute),
		started:   time.Now(),
	}

	a.kernel = kernel.New(
		kernel.WithName(cfg.App.Name),
		kernel.WithDebug(cfg.App.Debug),
		kernel.WithRegistry(a.registry),
		kernel.WithLogger(logger),
		kernel.WithMetrics(opts.Metrics),
		kernel.WithTracer(opts.Tracer),
	)

	views, err := a.loadViews(opts.Views)
	if err != nil {
		return nil, err
	}
	a.views = views

	a.register()
	a.kernel.Use(middleware.RequestID())
	a.kernel.RegisterDefault(http.MethodOptions, middleware.Preflight())

	if err := a.kernel.LoadRoutes("", a.webRoutes); err != nil {
		return nil, fmt.Errorf("load web routes: %w", err)
	}
	if err := a.kernel.LoadRoutes("Api", a.apiRoutes); err != nil {
		return nil, fmt.Errorf("load api routes: %w", err)
	}
	if err := a.kernel.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize routes: %w", err)
	}

	logger.Info("application ready",
		zap.String("name", cfg.App.Name),
		zap.Int("routes", a.kernel.Routes().Len()),
		zap.Bool("strict", cfg.App.Strict),
		zap.Bool("views", a.views != nil))
	return a, nil
}

func (a *App) loadViews(fsys fs.FS) (*view.Engine, error) {
	vopts := view.Options{BaseURL: a.cfg.App.URL, Routes: a.kernel.Routes(), Logger: a.logger}
	if fsys != nil {
		return view.NewEngineFS(fsys, a.cfg.App.Views, vopts)
	}
	if _, err := os.Stat(a.cfg.App.Views); errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("views directory not found", zap.String("dir", a.cfg.App.Views))
		return nil, nil
	}
	return view.NewEngine(a.cfg.App.Views, vopts)
}

// register fills the registry. Bindings given as factories are shared by
// every request.
func (a *App) register() {
	reg := a.registry
	cfg := a.cfg

	reg.Bind(ConfigID, func() any { return cfg }, false)
	reg.Bind(LoggerID, func() any { return a.logger }, false)
	reg.Bind(TableID, func() any { return a.kernel.Routes() }, false)
	reg.Bind(StoreID, func() any { return NewUserStore() }, false)
	reg.Bind(PublisherID, func() any { return a.publisher }, false)
	if a.views != nil {
		reg.Bind(ViewsID, func() any { return a.views }, false)
	}

	middleware.Register(reg, a.limiters, middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	reg.Provide(AuthID, container.Constructor{
		Params: []container.Param{container.Dep("config", ConfigID)},
		Build: func(args container.Args) (any, error) {
			c := container.Arg[*config.Config](args, 0)
			if c == nil {
				return &Auth{}, nil
			}
			return &Auth{token: c.App.Token}, nil
		},
	})

	aliases := middleware.Aliases()
	aliases["auth"] = AuthID
	reg.MiddlewareAlias(aliases)

	reg.Provide(UsersID, container.Constructor{
		Params: []container.Param{
			container.Dep("store", StoreID),
			container.Dep("routes", TableID),
			container.Nullable("publisher", PublisherID),
		},
		Build: func(args container.Args) (any, error) {
			store := container.Arg[*UserStore](args, 0)
			if store == nil {
				return nil, errors.New("users: store not bound")
			}
			return &UsersController{
				store:     store,
				routes:    container.Arg[*routing.Table](args, 1),
				publisher: container.Arg[*worker.Publisher](args, 2),
			}, nil
		},
	})

	RegisterCommands(reg, a.logger)
}

// RegisterCommands provides the background commands
func RegisterCommands(reg *container.Registry, logger *logging.Logger) {
	reg.Provide(WelcomeCommand, container.Constructor{
		Build: func(container.Args) (any, error) {
			return &Welcome{logger: logger.Named("welcome")}, nil
		},
	})
}

func (a *App) Config() *config.Config         { return a.cfg }
func (a *App) Kernel() *kernel.Kernel         { return a.kernel }
func (a *App) Registry() *container.Registry  { return a.registry }
func (a *App) Views() *view.Engine            { return a.views }
func (a *App) Publisher() *worker.Publisher   { return a.publisher }
func (a *App) Limiters() *middleware.Limiters { return a.limiters }
func (a *App) Uptime() time.Duration          { return time.Since(a.started) }

// Terminal returns a job runner sharing the application registry
func (a *App) Terminal(opts ...worker.TerminalOption) *worker.Terminal {
	opts = append([]worker.TerminalOption{
		worker.WithLogger(a.logger),
		worker.WithMetrics(a.metrics),
	}, opts...)
	return worker.NewTerminal(a.registry, opts...)
}
