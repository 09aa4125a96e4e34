package worker

import "github.com/GriffinCanCode/conduit/internal/container"

// Command is a background command resolved through the container
type Command interface {
	// Middleware runs before the method, after the lock is taken
	Middleware(c *container.Container) error
	// Methods lists the runnable methods by name
	Methods() map[string]container.Func
}

// Locker is implemented by commands that must not run concurrently
type Locker interface {
	// Lock takes the lock for key and returns the key to release
	Lock(c *container.Container, key string) (string, error)
	Unlock(key string)
}

// Base provides a no-op Middleware for commands
type Base struct{}

// Middleware does nothing
func (Base) Middleware(*container.Container) error { return nil }
