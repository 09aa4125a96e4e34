package routing

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

// AnyPattern is the catch-all pattern; AnyParam names its captured value
const (
	AnyPattern = "/*"
	AnyParam   = "any"
)

var (
	wildcardSuffix = regexp.MustCompile(`/(\{[^/{}]*:\.[*+]\}|\*)$`)
	placeholder    = regexp.MustCompile(`\{([^/{}:]+)(:[^/]*)?\}`)
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// Table stores routes and matches requests. Registration is closed once
// the table is frozen; lookups are safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	frozen bool

	routes map[string]*Route
	order  []*Route
	named  map[string]*Route
	verbs  []string

	getDelete *chi.Mux
	postPut   *chi.Mux
	other     *chi.Mux
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		routes:    make(map[string]*Route),
		named:     make(map[string]*Route),
		getDelete: chi.NewMux(),
		postPut:   chi.NewMux(),
		other:     chi.NewMux(),
	}
}

// NormalizePattern collapses duplicate slashes, strips the trailing slash
// and rewrites a trailing wildcard segment to AnyPattern
func NormalizePattern(pattern string) string {
	for strings.Contains(pattern, "//") {
		pattern = strings.ReplaceAll(pattern, "//", "/")
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	pattern = wildcardSuffix.ReplaceAllString(pattern, AnyPattern)
	if len(pattern) > 1 {
		pattern = strings.TrimRight(pattern, "/")
	}
	if pattern == "" {
		return "/"
	}
	return pattern
}

// Shape reduces placeholders to their constraint so patterns that match
// the same paths compare equal: "/users/{id}" and "/users/{uid}" are both
// "/users/{}".
func Shape(pattern string) string {
	return placeholder.ReplaceAllString(NormalizePattern(pattern), "{$2}")
}

func key(method, pattern string) string {
	return method + " " + Shape(pattern)
}

func (t *Table) partition(method string) *chi.Mux {
	switch method {
	case http.MethodGet, http.MethodDelete:
		return t.getDelete
	case http.MethodPost, http.MethodPut:
		return t.postPut
	default:
		return t.other
	}
}

// Register adds a route. Registering the same method and pattern shape twice
// fails with a duplicate route error.
func (t *Table) Register(r Route) (err error) {
	r.Method = strings.ToUpper(r.Method)
	r.Pattern = NormalizePattern(r.Pattern)

	if !ValidMethod(r.Method) {
		return exception.New(fmt.Sprintf("Invalid route method %s", r.Method),
			exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
	}
	if !r.Handler.Valid() {
		return exception.New(fmt.Sprintf("Invalid route handler for %s %s", r.Method, r.Pattern),
			exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return exception.New("Route table is finalized",
			exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
	}
	k := key(r.Method, r.Pattern)
	if _, exists := t.routes[k]; exists {
		return exception.DuplicateRoute(r.Method, r.Pattern)
	}

	defer func() {
		if p := recover(); p != nil {
			err = exception.New(fmt.Sprint(p),
				exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
		}
	}()
	t.partition(r.Method).Method(r.Method, r.Pattern, noop)

	route := r
	t.routes[k] = &route
	t.order = append(t.order, &route)
	if route.Name != "" {
		if _, taken := t.named[route.Name]; !taken {
			t.named[route.Name] = &route
		}
	}
	if !contains(t.verbs, route.Method) {
		t.verbs = append(t.verbs, route.Method)
	}
	return nil
}

// Has reports whether method and pattern are registered
func (t *Table) Has(method, pattern string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.routes[key(strings.ToUpper(method), NormalizePattern(pattern))]
	return ok
}

// Len returns the number of registered routes
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Routes returns the registered routes in registration order
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Route, len(t.order))
	for i, r := range t.order {
		out[i] = *r
	}
	return out
}

// Freeze closes the table for registration
func (t *Table) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Frozen reports whether registration is closed
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Lookup matches method and a normalized path
func (t *Table) Lookup(method, path string) Match {
	method = strings.ToUpper(method)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if route, params, ok := t.find(method, path); ok {
		return Match{Status: Found, Route: route, Params: params}
	}

	var allowed, defaults []string
	for _, verb := range t.verbs {
		if verb == method {
			continue
		}
		route, _, ok := t.find(verb, path)
		switch {
		case !ok:
		case route.Default:
			defaults = append(defaults, verb)
		default:
			allowed = append(allowed, verb)
		}
	}
	if len(allowed) == 0 {
		allowed = defaults
	}
	if len(allowed) == 0 {
		return Match{Status: NotFound}
	}
	return Match{Status: MethodNotAllowed, Allowed: allowed}
}

func (t *Table) find(method, path string) (*Route, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	pattern := t.partition(method).Find(rctx, method, path)
	if pattern == "" {
		return nil, nil, false
	}
	route, ok := t.routes[key(method, pattern)]
	if !ok {
		return nil, nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		if i >= len(rctx.URLParams.Values) {
			break
		}
		if k == "*" {
			k = AnyParam
		}
		params[k] = rctx.URLParams.Values[i]
	}
	return route, params, true
}

// URL builds the path of the named route, filling placeholders in order.
// It fails when a placeholder is left without a value.
func (t *Table) URL(name string, params ...string) (string, bool) {
	t.mu.RLock()
	route, ok := t.named[name]
	t.mu.RUnlock()
	if !ok {
		return "", false
	}

	missing := false
	path := placeholder.ReplaceAllStringFunc(route.Pattern, func(string) string {
		if len(params) == 0 {
			missing = true
			return ""
		}
		v := params[0]
		params = params[1:]
		return v
	})
	if missing {
		return "", false
	}
	if strings.HasSuffix(path, AnyPattern) {
		rest := ""
		if len(params) > 0 {
			rest = strings.TrimLeft(params[0], "/")
		}
		path = strings.TrimSuffix(path, "*") + rest
	}
	return NormalizePattern(path), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
