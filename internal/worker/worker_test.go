package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type greeter struct {
	Base
	name    string
	journal *journal
}

func (g *greeter) Methods() map[string]container.Func {
	return map[string]container.Func{
		"Main": {
			Name:   "greeter::Main",
			Params: []container.Param{container.Optional("greeting", "hello"), container.Dep("c", container.Self)},
			Call: func(args container.Args) (any, error) {
				if _, ok := args.Get(1).(*container.Container); !ok {
					return nil, errors.New("container not injected")
				}
				g.journal.add(args.String(0) + " " + g.name)
				return nil, nil
			},
		},
		"Fail": {
			Call: func(container.Args) (any, error) { return nil, errors.New("greeting failed") },
		},
		"Panic": {
			Call: func(container.Args) (any, error) { panic("greeter exploded") },
		},
	}
}

type locked struct {
	journal *journal
	lockErr error
}

func (l *locked) Lock(_ *container.Container, key string) (string, error) {
	if l.lockErr != nil {
		return "", l.lockErr
	}
	l.journal.add("lock " + key)
	return key + ".lock", nil
}

func (l *locked) Unlock(key string) { l.journal.add("unlock " + key) }

func (l *locked) Middleware(*container.Container) error {
	l.journal.add("middleware")
	return nil
}

func (l *locked) Methods() map[string]container.Func {
	return map[string]container.Func{
		"Main": container.Fn("locked::Main", func() (any, error) {
			l.journal.add("main")
			return nil, nil
		}),
	}
}

func newRegistry(j *journal) *container.Registry {
	reg := container.NewRegistry()
	reg.Provide("cmd.greet", container.Constructor{
		Params: []container.Param{container.Optional("name", "world")},
		Build: func(args container.Args) (any, error) {
			return &greeter{name: args.String(0), journal: j}, nil
		},
	})
	reg.Provide("cmd.locked", container.Constructor{
		Params: []container.Param{container.Optional("lock_error", nil)},
		Build: func(args container.Args) (any, error) {
			l := &locked{journal: j}
			if msg := args.String(0); msg != "" {
				l.lockErr = errors.New(msg)
			}
			return l, nil
		},
	})
	reg.Provide("not.command", container.Constructor{
		Build: func(container.Args) (any, error) { return struct{}{}, nil },
	})
	return reg
}

func TestPublishWritesJobFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jobs")
	metrics := monitoring.NewMetrics()
	p := NewPublisher(dir, metrics)
	p.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	file, ok, err := p.Publish(NewJob("cmd.greet", map[string]any{"name": "Ada"}))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Regexp(t, regexp.MustCompile(`^2024-05-06_070809_[0-9A-Z]{26}\.job$`), filepath.Base(file))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobsPublished))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	job, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "cmd.greet", job.Command)
	assert.Equal(t, MainMethod, job.Method)
	assert.Equal(t, "Ada", job.Argument("name"))
	assert.NotEmpty(t, job.ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPublishWithoutStorage(t *testing.T) {
	file, ok, err := NewPublisher("", nil).Publish(NewJob("cmd.greet", nil))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, file)

	_, ok, err = NewPublisher(t.TempDir(), nil).Publish(Job{})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDecodeRejectsInvalidJobs(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"method":"Main"}`))
	assert.Error(t, err)
}

func TestTerminalRunsPublishedJob(t *testing.T) {
	j := &journal{}
	dir := t.TempDir()
	metrics := monitoring.NewMetrics()
	term := NewTerminal(newRegistry(j), WithMetrics(metrics), WithOutput(&bytes.Buffer{}))

	file, _, err := NewPublisher(dir, nil).Publish(NewJob("cmd.greet", map[string]any{"name": "Ada", "greeting": "hi"}))
	require.NoError(t, err)
	require.NoError(t, term.Run(file))

	require.NoError(t, term.Execute(NewJob("cmd.greet", nil)))
	assert.Equal(t, []string{"hi Ada", "hello world"}, j.all())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.JobsProcessed.WithLabelValues("cmd.greet", "success")))
}

func TestTerminalValidatesFile(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.job")
	require.NoError(t, os.WriteFile(garbage, []byte("{"), 0o644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "missing.job"), "missing.job not exists."},
		{"directory", dir, "not is file."},
		{"undecodable", garbage, "Unable to deserialize data. File: " + garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := NewTerminal(container.NewRegistry(), WithOutput(&out))

			err := term.Run(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, out.String(), red)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestTerminalExecuteFailures(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want string
	}{
		{"missing method", Job{Command: "cmd.greet", Method: "Nope"}, "Method cmd.greet::Nope not exists."},
		{"no method", Job{Command: "cmd.greet"}, "The main method of the command is not set."},
		{"not a command", NewJob("not.command", nil), "not.command is not a command"},
		{"unknown command", NewJob("cmd.ghost", nil), "cmd.ghost is not instantiable"},
		{"method error", Job{Command: "cmd.greet", Method: "Fail"}, "greeting failed"},
		{"panic", Job{Command: "cmd.greet", Method: "Panic"}, "greeter exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := NewTerminal(newRegistry(&journal{}), WithOutput(&out))

			err := term.Execute(tt.job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestTerminalLocksAroundCommand(t *testing.T) {
	j := &journal{}
	term := NewTerminal(newRegistry(j), WithOutput(&bytes.Buffer{}))

	require.NoError(t, term.Execute(NewJob("cmd.locked", nil)))
	assert.Equal(t, []string{"lock cmd.locked", "middleware", "main", "unlock cmd.locked.lock"}, j.all())

	err := term.Execute(NewJob("cmd.locked", map[string]any{"lock_error": "already running"}))
	assert.EqualError(t, err, "already running")
	assert.Len(t, j.all(), 4)
}

func TestBreakers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var transitions []string
	b := NewBreakers(BreakerSettings{
		Failures: 2,
		Cooldown: time.Minute,
		OnStateChange: func(command string, from, to State) {
			transitions = append(transitions, command+":"+from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }

	fail := func() error { return errors.New("boom") }
	ok := func() error { return nil }

	assert.Error(t, b.Execute("a", fail))
	assert.Equal(t, StateClosed, b.State("a"))
	assert.Error(t, b.Execute("a", fail))
	assert.Equal(t, StateOpen, b.State("a"))
	assert.ErrorIs(t, b.Execute("a", ok), ErrCircuitOpen)
	assert.NoError(t, b.Execute("b", ok))

	now = now.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State("a"))
	assert.Error(t, b.Execute("a", fail))
	assert.Equal(t, StateOpen, b.State("a"))

	now = now.Add(time.Minute)
	assert.NoError(t, b.Execute("a", ok))
	assert.Equal(t, StateClosed, b.State("a"))

	assert.Equal(t, []string{
		"a:closed->open",
		"a:open->half-open",
		"a:half-open->open",
		"a:open->half-open",
		"a:half-open->closed",
	}, transitions)
}

func TestBreakersAllowSingleTrial(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreakers(BreakerSettings{Failures: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	require.Error(t, b.Execute("a", func() error { return errors.New("boom") }))
	now = now.Add(time.Second)

	err := b.Execute("a", func() error {
		assert.ErrorIs(t, b.Execute("a", func() error { return nil }), ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, b.State("a"))
}

func TestSpoolerDrain(t *testing.T) {
	j := &journal{}
	dir := t.TempDir()
	pub := NewPublisher(dir, nil)
	term := NewTerminal(newRegistry(j), WithOutput(&bytes.Buffer{}))

	_, _, err := pub.Publish(NewJob("cmd.greet", map[string]any{"name": "one"}))
	require.NoError(t, err)
	_, _, err = pub.Publish(Job{Command: "cmd.greet", Method: "Fail"})
	require.NoError(t, err)
	_, _, err = pub.Publish(NewJob("cmd.greet", map[string]any{"name": "two"}))
	require.NoError(t, err)

	s, err := NewSpooler(dir, "@every 1h", term, nil)
	require.NoError(t, err)

	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	n, err := s.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{"hello one", "hello two"}, j.all())

	pending, err = s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed, err := filepath.Glob(filepath.Join(dir, "*"+Extension+FailedExtension))
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestSpoolerSkipsOpenCircuit(t *testing.T) {
	dir := t.TempDir()
	breakers := NewBreakers(BreakerSettings{Failures: 1, Cooldown: time.Hour})
	term := NewTerminal(newRegistry(&journal{}), WithBreakers(breakers), WithOutput(&bytes.Buffer{}))
	require.Error(t, term.Execute(Job{Command: "cmd.greet", Method: "Fail"}))

	_, _, err := NewPublisher(dir, nil).Publish(NewJob("cmd.greet", nil))
	require.NoError(t, err)

	s, err := NewSpooler(dir, "@every 1h", term, nil)
	require.NoError(t, err)
	n, err := s.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSpoolerConfiguration(t *testing.T) {
	term := NewTerminal(container.NewRegistry())

	_, err := NewSpooler("", "@every 1s", term, nil)
	assert.Error(t, err)

	_, err = NewSpooler(t.TempDir(), "not a schedule", term, nil)
	assert.Error(t, err)

	s, err := NewSpooler(filepath.Join(t.TempDir(), "absent"), "@every 1h", term, nil)
	require.NoError(t, err)
	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
