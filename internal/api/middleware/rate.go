package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
)

// ThrottleID is the container id of the throttle middleware
const ThrottleID = "middleware.throttle"

// LimitersID is the container id of the shared limiter set
const LimitersID = "middleware.limiters"

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiters holds one token bucket per client and limit. Buckets idle for
// longer than the idle window are dropped.
type Limiters struct {
	mu        sync.Mutex
	clients   map[string]*client
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiters creates an empty limiter set
func NewLimiters(idle time.Duration) *Limiters {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &Limiters{
		clients:   make(map[string]*client),
		idle:      idle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Get returns the bucket of key for the given limit
func (l *Limiters) Get(key string, cfg RateLimitConfig) *rate.Limiter {
	id := fmt.Sprintf("%s|%d|%d", key, cfg.RequestsPerSecond, cfg.Burst)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		l.sweep(now)
	}
	c, exists := l.clients[id]
	if !exists {
		c = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
		l.clients[id] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Len returns the number of tracked buckets
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiters) sweep(now time.Time) {
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idle {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}

// Allow takes a token from the bucket of key. When none is available it
// returns the time until the next one.
func (l *Limiters) Allow(key string, cfg RateLimitConfig) (bool, time.Duration) {
	r := l.Get(key, cfg).Reserve()
	if !r.OK() {
		return false, time.Second
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d
	}
	return true, 0
}

func retryAfter(d time.Duration) string {
	return strconv.Itoa(int(math.Max(1, math.Ceil(d.Seconds()))))
}

// RateLimit creates a per-IP rate limiting middleware for the host.
func RateLimit(limiters *Limiters, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, wait := limiters.Allow(c.ClientIP(), cfg); !ok {
			c.Header("Retry-After", retryAfter(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a rate limiting middleware shared by every client.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// Throttle is the dispatch rate limiting middleware. Route references
// such as "throttle:10,20" override the default limit.
type Throttle struct {
	limiters *Limiters
	defaults RateLimitConfig
}

// NewThrottle creates a throttle drawing from limiters
func NewThrottle(limiters *Limiters, defaults RateLimitConfig) *Throttle {
	return &Throttle{limiters: limiters, defaults: defaults}
}

// Params declares the request and the optional rps and burst arguments
func (t *Throttle) Params() []container.Param {
	return []container.Param{
		container.Dep("request", xhttp.RequestType),
		container.Optional("rps", t.defaults.RequestsPerSecond),
		container.Optional("burst", t.defaults.Burst),
	}
}

// Handle rejects the request with 429 when the client is over its limit
func (t *Throttle) Handle(args container.Args) error {
	req := container.Arg[*xhttp.Request](args, 0)
	if req == nil {
		return nil
	}
	cfg, err := t.limit(args.String(1), args.String(2))
	if err != nil {
		return err
	}
	if ok, wait := t.limiters.Allow(req.ClientIP(), cfg); !ok {
		return exception.New("Too Many Requests",
			exception.WithStatus(http.StatusTooManyRequests),
			exception.WithHeader("Retry-After", retryAfter(wait)),
			exception.WithDetails(fmt.Sprintf("limit %d/s, burst %d", cfg.RequestsPerSecond, cfg.Burst)))
	}
	return nil
}

func (t *Throttle) limit(rps, burst string) (RateLimitConfig, error) {
	cfg := t.defaults
	var err error
	if cfg.RequestsPerSecond, err = strconv.Atoi(rps); err != nil || cfg.RequestsPerSecond <= 0 {
		return cfg, exception.New(fmt.Sprintf("Invalid throttle rate %q", rps),
			exception.WithStatus(http.StatusInternalServerError))
	}
	if cfg.Burst, err = strconv.Atoi(burst); err != nil || cfg.Burst <= 0 {
		return cfg, exception.New(fmt.Sprintf("Invalid throttle burst %q", burst),
			exception.WithStatus(http.StatusInternalServerError))
	}
	return cfg, nil
}

// Register binds limiters and provides the throttle middleware
func Register(reg *container.Registry, limiters *Limiters, defaults RateLimitConfig) {
	reg.Bind(LimitersID, func() any { return limiters }, false)
	reg.Provide(ThrottleID, container.Constructor{
		Params: []container.Param{container.Dep("limiters", LimitersID)},
		Build: func(args container.Args) (any, error) {
			l := container.Arg[*Limiters](args, 0)
			if l == nil {
				return nil, fmt.Errorf("throttle: limiters not bound")
			}
			return NewThrottle(l, defaults), nil
		},
	})
}

// Aliases returns the middleware aliases of this package
func Aliases() map[string]string {
	return map[string]string{"throttle": ThrottleID}
}
