package app

import (
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/internal/worker"
)

// Welcome greets a newly registered user in the background
type Welcome struct {
	worker.Base
	logger *logging.Logger
}

// Methods lists the command methods
func (w *Welcome) Methods() map[string]container.Func {
	return map[string]container.Func{
		worker.MainMethod: {
			Name:   "welcome::Main",
			Params: []container.Param{container.Value("name"), container.Optional("email", "")},
			Call: func(args container.Args) (any, error) {
				name := args.String(0)
				if name == "" {
					return nil, errors.New("welcome: missing name")
				}
				w.logger.Info("welcome sent",
					zap.String("name", name),
					zap.String("email", args.String(1)))
				return nil, nil
			},
		},
	}
}
