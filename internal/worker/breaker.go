package worker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned for commands skipped by an open breaker
var ErrCircuitOpen = errors.New("command circuit is open")

// State represents the breaker state of a command
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures the per-command breakers
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens a breaker
	Failures int
	// Cooldown is how long an open breaker skips its command
	Cooldown time.Duration
	// OnStateChange is called whenever a command changes state
	OnStateChange func(command string, from, to State)
}

type breaker struct {
	state    State
	failures int
	expiry   time.Time
	trial    bool
}

// Breakers tracks one circuit per command
type Breakers struct {
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	commands map[string]*breaker
}

// NewBreakers creates an empty breaker set
func NewBreakers(settings BreakerSettings) *Breakers {
	if settings.Failures <= 0 {
		settings.Failures = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = time.Minute
	}
	return &Breakers{
		settings: settings,
		now:      time.Now,
		commands: make(map[string]*breaker),
	}
}

// State returns the current state of command
func (b *Breakers) State(command string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current(command, b.now())
}

// Execute runs fn unless the breaker of command is open. While half-open
// a single trial run is let through.
func (b *Breakers) Execute(command string, fn func() error) error {
	if err := b.before(command); err != nil {
		return err
	}

	success := false
	defer func() { b.after(command, success) }()

	err := fn()
	success = err == nil
	return err
}

func (b *Breakers) get(command string) *breaker {
	br, ok := b.commands[command]
	if !ok {
		br = &breaker{}
		b.commands[command] = br
	}
	return br
}

func (b *Breakers) current(command string, now time.Time) State {
	br := b.get(command)
	if br.state == StateOpen && !br.expiry.After(now) {
		b.setState(command, br, StateHalfOpen, now)
	}
	return br.state
}

func (b *Breakers) before(command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current(command, b.now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		br := b.commands[command]
		if br.trial {
			return ErrCircuitOpen
		}
		br.trial = true
	}
	return nil
}

func (b *Breakers) after(command string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	br := b.get(command)
	br.trial = false

	if success {
		br.failures = 0
		b.setState(command, br, StateClosed, now)
		return
	}

	br.failures++
	if br.state == StateHalfOpen || br.failures >= b.settings.Failures {
		b.setState(command, br, StateOpen, now)
	}
}

func (b *Breakers) setState(command string, br *breaker, state State, now time.Time) {
	if br.state == state {
		return
	}
	prev := br.state
	br.state = state

	switch state {
	case StateOpen:
		br.expiry = now.Add(b.settings.Cooldown)
	case StateClosed:
		br.failures = 0
		br.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(command, prev, state)
	}
}
