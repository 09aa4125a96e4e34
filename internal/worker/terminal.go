package worker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/logging"
)

const (
	red   = "\033[31m"
	reset = "\033[0m"
)

// Terminal executes spooled jobs
type Terminal struct {
	registry *container.Registry
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	breakers *Breakers
	out      io.Writer
}

// TerminalOption configures a Terminal
type TerminalOption func(*Terminal)

// WithLogger sets the logger
func WithLogger(l *logging.Logger) TerminalOption {
	return func(t *Terminal) { t.logger = l }
}

// WithMetrics records job outcomes
func WithMetrics(m *monitoring.Metrics) TerminalOption {
	return func(t *Terminal) { t.metrics = m }
}

// WithBreakers sets the per-command breakers
func WithBreakers(b *Breakers) TerminalOption {
	return func(t *Terminal) { t.breakers = b }
}

// WithOutput sets where failures are reported
func WithOutput(w io.Writer) TerminalOption {
	return func(t *Terminal) { t.out = w }
}

// NewTerminal creates a runner resolving commands from registry
func NewTerminal(registry *container.Registry, opts ...TerminalOption) *Terminal {
	t := &Terminal{registry: registry, out: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	if t.breakers == nil {
		t.breakers = NewBreakers(BreakerSettings{})
	}
	t.logger = t.logger.Named("terminal")
	return t
}

// Run executes the job stored in path
func (t *Terminal) Run(path string) error {
	job, err := t.load(path)
	if err != nil {
		t.report(err)
		return err
	}
	return t.Execute(job)
}

func (t *Terminal) load(path string) (Job, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Job{}, exception.New(fmt.Sprintf("%s not exists.", path), exception.WithCause(err))
	}
	if !info.Mode().IsRegular() {
		return Job{}, exception.Newf("%s not is file.", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, exception.New(fmt.Sprintf("%s cannot read.", path), exception.WithCause(err))
	}
	job, err := Decode(data)
	if err != nil {
		return Job{}, exception.New(fmt.Sprintf("Unable to deserialize data. File: %s", path), exception.WithCause(err))
	}
	return job, nil
}

// Execute runs job in a fresh container
func (t *Terminal) Execute(job Job) error {
	start := time.Now()
	timer := monitoring.NewTimer(t.metrics, job.Command)

	err := t.breakers.Execute(job.Command, func() error { return t.call(job) })

	status := "success"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		status = "skipped"
		t.logger.Warn("command skipped", zap.String("command", job.Command), zap.String("job_id", job.ID))
	case err != nil:
		status = "failure"
		t.report(err)
		t.logger.Error("command failed",
			zap.String("command", job.Command),
			zap.String("method", job.Method),
			zap.String("job_id", job.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	default:
		t.logger.Info("command finished",
			zap.String("command", job.Command),
			zap.String("method", job.Method),
			zap.String("job_id", job.ID),
			zap.Duration("duration", time.Since(start)))
	}
	timer.Stop(status)
	return err
}

func (t *Terminal) call(job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = exception.FromPanic(p)
		}
	}()

	if job.Method == "" {
		return exception.New("The main method of the command is not set.")
	}

	c := container.New(t.registry, nil)
	obj, err := c.MakeWith(job.Command, job.Arguments)
	if err != nil {
		return err
	}
	cmd, ok := obj.(Command)
	if !ok {
		return exception.New(fmt.Sprintf("%s is not a command", job.Command),
			exception.WithKind(exception.KindClassInvalid),
			exception.WithStatus(http.StatusInternalServerError))
	}

	if l, ok := cmd.(Locker); ok {
		key, err := l.Lock(c, job.Command)
		if err != nil {
			return err
		}
		defer l.Unlock(key)
	}

	if err := cmd.Middleware(c); err != nil {
		return err
	}

	fn, ok := cmd.Methods()[job.Method]
	if !ok || fn.Call == nil {
		return exception.New(fmt.Sprintf("Method %s::%s not exists.", job.Command, job.Method),
			exception.WithKind(exception.KindUnresolvedDependency),
			exception.WithStatus(http.StatusInternalServerError))
	}

	args, err := t.args(c, job, fn.Params)
	if err != nil {
		return err
	}
	_, err = fn.Call(args)
	return err
}

// args resolves method parameters: a job argument with the same name,
// the container, a known type, a default, nil otherwise
func (t *Terminal) args(c *container.Container, job Job, params []container.Param) (container.Args, error) {
	args := make(container.Args, 0, len(params))
	for _, p := range params {
		if v, ok := job.Arguments[p.Name]; ok {
			args = append(args, v)
			continue
		}
		switch {
		case p.Type == container.Self:
			args = append(args, c)
		case p.Type != "" && c.Has(p.Type):
			dep, err := c.Make(p.Type)
			if err != nil {
				return nil, err
			}
			args = append(args, dep)
		case p.HasDefault:
			args = append(args, p.Default)
		default:
			args = append(args, nil)
		}
	}
	return args, nil
}

// report prints err in red with its origin and trace
func (t *Terminal) report(err error) {
	if t.out == nil {
		return
	}
	var h exception.Handler
	if errors.As(err, &h) {
		if out, ok := h.Handle().(error); ok {
			err = out
		}
	}
	e := exception.Wrap(err)
	fmt.Fprintf(t.out, "%s%s\n%s: %d%s\n\n%s\n", red, e.Error(), e.File(), e.Line(), reset, e.Trace())
}
