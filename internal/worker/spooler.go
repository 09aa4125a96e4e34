package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/logging"
)

// FailedExtension is appended to job files whose command failed
const FailedExtension = ".failed"

// Spooler drains the spool directory on a cron schedule
type Spooler struct {
	dir      string
	schedule string
	terminal *Terminal
	logger   *logging.Logger
	cron     *cron.Cron
}

// NewSpooler creates a spooler running terminal over the jobs in dir
func NewSpooler(dir, schedule string, terminal *Terminal, logger *logging.Logger) (*Spooler, error) {
	if dir == "" {
		return nil, fmt.Errorf("spooler: no storage path configured")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	cl := logger.Cron()
	s := &Spooler{
		dir:      dir,
		schedule: schedule,
		terminal: terminal,
		logger:   logger.Named("spooler"),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("spooler: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule
func (s *Spooler) Start() {
	s.logger.Info("spooler started", zap.String("dir", s.dir), zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running drain until ctx ends
func (s *Spooler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Spooler) tick() {
	if _, err := s.Drain(context.Background()); err != nil {
		s.logger.Error("drain failed", zap.Error(err))
	}
}

// Pending lists spooled job files in publish order
func (s *Spooler) Pending() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.dir), "*"+Extension)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(s.dir, m)
	}
	return files, nil
}

// Drain runs every pending job once. Finished jobs are removed; failed
// jobs are renamed with FailedExtension. Jobs skipped by an open breaker
// stay for the next drain.
func (s *Spooler) Drain(ctx context.Context) (int, error) {
	files, err := s.Pending()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		err := s.terminal.Run(file)
		switch {
		case errors.Is(err, ErrCircuitOpen):
			continue
		case err != nil:
			if rerr := os.Rename(file, file+FailedExtension); rerr != nil {
				s.logger.Warn("failed to park job", zap.String("file", file), zap.Error(rerr))
			}
		default:
			if rerr := os.Remove(file); rerr != nil {
				s.logger.Warn("failed to remove job", zap.String("file", file), zap.Error(rerr))
			}
		}
		processed++
	}
	return processed, nil
}
