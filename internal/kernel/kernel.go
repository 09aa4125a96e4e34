package kernel

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/internal/routing"
)

// TimingHeader carries the dispatch start time in seconds
const TimingHeader = "micro-time"

const unmatched = "unmatched"

// ExceptionHandler converts a dispatch error into a result
type ExceptionHandler interface {
	Handle(err error) any
}

// ExceptionHandlerFunc adapts a function to ExceptionHandler
type ExceptionHandlerFunc func(err error) any

// Handle calls f(err)
func (f ExceptionHandlerFunc) Handle(err error) any { return f(err) }

type defaultHandler struct {
	method string
	fn     container.Func
}

// Kernel is the application dispatcher
type Kernel struct {
	name     string
	debug    bool
	table    *routing.Table
	registry *container.Registry
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	mu         sync.RWMutex
	middleware []any
	defaults   []defaultHandler
	onError    ExceptionHandler

	once        sync.Once
	finalizeErr error
}

// Option configures a Kernel
type Option func(*Kernel)

// WithName sets the application name shown on error pages
func WithName(name string) Option {
	return func(k *Kernel) { k.name = name }
}

// WithDebug toggles file and stack trace output on error pages
func WithDebug(debug bool) Option {
	return func(k *Kernel) { k.debug = debug }
}

// WithRegistry sets the dependency registry
func WithRegistry(r *container.Registry) Option {
	return func(k *Kernel) { k.registry = r }
}

// WithTable sets the route table
func WithTable(t *routing.Table) Option {
	return func(k *Kernel) { k.table = t }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(k *Kernel) { k.logger = l }
}

// WithMetrics enables dispatch metrics
func WithMetrics(m *monitoring.Metrics) Option {
	return func(k *Kernel) { k.metrics = m }
}

// WithTracer enables dispatch spans
func WithTracer(t *tracing.Tracer) Option {
	return func(k *Kernel) { k.tracer = t }
}

// New creates a kernel
func New(opts ...Option) *Kernel {
	k := &Kernel{
		name:  "conduit",
		debug: true,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.table == nil {
		k.table = routing.NewTable()
	}
	if k.registry == nil {
		k.registry = container.NewRegistry()
	}
	if k.logger == nil {
		k.logger = logging.NewNop()
	}
	k.logger = k.logger.Named("kernel")
	return k
}

func (k *Kernel) Routes() *routing.Table        { return k.table }
func (k *Kernel) Registry() *container.Registry { return k.registry }
func (k *Kernel) Logger() *logging.Logger       { return k.logger }

// Use appends global middleware. Each entry is a registered id, an
// "alias:args" reference or a container.Func.
func (k *Kernel) Use(middleware ...any) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.middleware = append(k.middleware, middleware...)
}

// SetExceptionHandler registers the handler used for every dispatch error
func (k *Kernel) SetExceptionHandler(h ExceptionHandler) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onError = h
}

// RegisterDefault attaches fn to the catch-all pattern of method when the
// application does not register that route itself
func (k *Kernel) RegisterDefault(method string, fn container.Func) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.defaults = append(k.defaults, defaultHandler{method: method, fn: fn})
}

// LoadRoutes runs a route file against a collector prefixed with name
func (k *Kernel) LoadRoutes(name string, fn func(c *routing.Collector)) error {
	c := routing.NewCollector(k.table, name)
	fn(c)
	return c.Err()
}

// URL builds the path of a named route
func (k *Kernel) URL(name string, params ...string) (string, bool) {
	return k.table.URL(name, params...)
}

// Finalize attaches default handlers and closes the route table. It runs
// once; later calls return the first result.
func (k *Kernel) Finalize() error {
	k.once.Do(func() {
		if k.table.Len() == 0 {
			k.finalizeErr = exception.New("No route has been determined yet!",
				exception.WithKind(exception.KindInvalidRoute),
				exception.WithStatus(http.StatusInternalServerError))
			return
		}

		k.mu.RLock()
		defaults := append([]defaultHandler(nil), k.defaults...)
		k.mu.RUnlock()

		for _, d := range defaults {
			if k.table.Has(d.method, routing.AnyPattern) {
				continue
			}
			err := k.table.Register(routing.Route{
				Method:  d.method,
				Pattern: routing.AnyPattern,
				Handler: routing.Call(d.fn),
				Default: true,
			})
			if err != nil {
				k.finalizeErr = err
				return
			}
		}
		k.table.Freeze()

		if k.metrics != nil {
			k.metrics.SetRoutes(k.table.Len())
		}
		k.logger.Info("routes finalized", zap.Int("routes", k.table.Len()))
	})
	return k.finalizeErr
}

// Dispatch runs r through the pipeline and returns the result: normally
// a *http.Response, or whatever a handler or exception handler produced
func (k *Kernel) Dispatch(r *http.Request) any {
	start := time.Now()

	var span *tracing.Span
	if k.tracer != nil {
		var ctx context.Context
		span, ctx = k.tracer.StartSpan(r.Context(), "dispatch")
		r = r.WithContext(ctx)
	}

	req := xhttp.NewRequest(r)
	resp := xhttp.NewResponse()
	resp.SetHeader(TimingHeader, strconv.FormatFloat(float64(start.UnixMicro())/1e6, 'f', 6, 64), true)

	route := unmatched
	result, err := k.dispatch(req, resp, &route)
	var failure *exception.Exception
	if err != nil {
		failure = exception.Wrap(err)
		result = k.handleError(err, failure)
	}

	status := http.StatusInternalServerError
	if out, ok := result.(*xhttp.Response); ok {
		status = out.StatusCode()
	}
	duration := time.Since(start)

	fields := []zap.Field{
		zap.String("request_id", req.ID()),
		zap.String("method", req.Method()),
		zap.String("path", req.Path()),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	}
	switch {
	case failure == nil:
		k.logger.Info("dispatched", fields...)
	case status >= http.StatusInternalServerError:
		fields = append(fields, zap.String("error_id", failure.ID()), zap.String("error_kind", string(failure.Kind())))
		k.logger.Error("dispatch failed", append(fields, zap.Error(err))...)
	default:
		fields = append(fields, zap.String("error_id", failure.ID()), zap.String("error_kind", string(failure.Kind())))
		k.logger.Info("dispatched", fields...)
	}

	if k.metrics != nil {
		k.metrics.RecordDispatch(req.Method(), route, strconv.Itoa(status), duration)
		if failure != nil {
			k.metrics.RecordDispatchError(string(failure.Kind()))
		}
	}
	if span != nil {
		span.SetTag("route", route)
		span.SetStatus(status)
		if err != nil && status >= http.StatusInternalServerError {
			span.SetError(err)
		}
		k.tracer.Finish(span)
	}
	return result
}

func (k *Kernel) dispatch(req *xhttp.Request, resp *xhttp.Response, route *string) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, exception.FromPanic(p)
		}
	}()

	if err := k.Finalize(); err != nil {
		return nil, err
	}

	c := container.New(k.registry, map[string]any{
		xhttp.RequestType:  req,
		xhttp.ResponseType: resp,
	})

	k.mu.RLock()
	global := append([]any(nil), k.middleware...)
	k.mu.RUnlock()

	for _, m := range global {
		if err := k.runMiddleware(c, m); err != nil {
			return nil, err
		}
	}

	match := k.table.Lookup(req.Method(), req.Path())
	switch match.Status {
	case routing.NotFound:
		return nil, exception.NotFound(req.Path())
	case routing.MethodNotAllowed:
		if len(match.Allowed) == 1 && match.Allowed[0] == http.MethodOptions {
			return nil, exception.NotFound(req.Path())
		}
		return nil, exception.MethodNotAllowed(req.Method(), match.Allowed)
	}
	*route = match.Route.Pattern

	rh := NewRouteHandler(match, req, resp, c)
	for _, ref := range rh.Middleware() {
		if err := k.runMiddleware(c, ref); err != nil {
			return nil, err
		}
	}

	result, err = rh.Handle()
	if err != nil {
		return nil, err
	}
	if b, ok := result.(bool); ok && !b {
		return handlerFailure(), nil
	}
	return result, nil
}

func (k *Kernel) runMiddleware(c *container.Container, ref any) error {
	if s, ok := ref.(string); ok {
		name, args := k.registry.GatherMiddleware(s)
		return c.Middleware(name, args)
	}
	return c.Middleware(ref, nil)
}

func handlerFailure() *xhttp.Response {
	resp := xhttp.NewErrorResponse(exception.HandlerFailure())
	resp.SetContent("handle fail")
	return resp
}

// ServeHTTP dispatches r and writes the result. Results that are not a
// response are answered with a plain 500.
func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := k.Dispatch(r)
	if resp, ok := result.(*xhttp.Response); ok {
		if err := resp.WriteTo(w); err != nil {
			k.logger.Warn("failed to write response", zap.Error(err))
		}
		return
	}
	WriteFallback(w)
}

// WriteFallback answers with a permissive plain text 500
func WriteFallback(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/plain")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "*")
	h.Set("Access-Control-Allow-Headers", "*")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("500 - Internal Server Error"))
}
