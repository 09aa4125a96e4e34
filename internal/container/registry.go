package container

import (
	"strings"
	"sync"
)

// Self is the id under which a container resolves to itself
const Self = "container"

// Registry holds process-wide constructors, bindings and middleware
// aliases. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	bindings     map[string]any
	aliases      map[string]string
	strict       bool
}

// Option configures a Registry
type Option func(*Registry)

// WithStrictAssertions enables structural assertion of resolved instances
func WithStrictAssertions(on bool) Option {
	return func(r *Registry) { r.strict = on }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		bindings:     make(map[string]any),
		aliases:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strict reports whether structural assertion is enabled
func (r *Registry) Strict() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strict
}

// Provide registers the constructor for id. The first registration wins;
// the return value reports whether c was stored.
func (r *Registry) Provide(id string, c Constructor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[id]; exists {
		return false
	}
	r.constructors[id] = c
	return true
}

// Bind maps abstract to concrete and returns the stored binding.
// A concrete func() any is invoked once and its result stored: a string
// result names another id, any other value is shared by every container.
// Existing bindings are kept unless replace is set. A nil concrete only
// reads the current binding.
func (r *Registry) Bind(abstract string, concrete any, replace bool) any {
	r.mu.RLock()
	current, exists := r.bindings[abstract]
	r.mu.RUnlock()
	if concrete == nil || (exists && !replace) {
		return current
	}

	if factory, ok := concrete.(func() any); ok {
		concrete = factory()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, exists := r.bindings[abstract]; exists && !replace {
		return current
	}
	r.bindings[abstract] = concrete
	return concrete
}

// Has reports whether id can be resolved by this registry
func (r *Registry) Has(id string) bool {
	if id == Self {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.constructors[id]; ok {
		return true
	}
	_, ok := r.bindings[id]
	return ok
}

// MiddlewareAlias sets the alias table. Only the first non-empty table is
// kept.
func (r *Registry) MiddlewareAlias(aliases map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.aliases) > 0 {
		return
	}
	for k, v := range aliases {
		r.aliases[k] = v
	}
}

// GatherMiddleware splits "alias:a,b" into the aliased id and its
// arguments. Unknown aliases are returned as ids unchanged.
func (r *Registry) GatherMiddleware(ref string) (string, []string) {
	name, rawArgs, _ := strings.Cut(strings.TrimSpace(ref), ":")

	r.mu.RLock()
	if id, ok := r.aliases[name]; ok {
		name = id
	}
	r.mu.RUnlock()

	var args []string
	if rawArgs != "" {
		for _, a := range strings.Split(rawArgs, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}
	return name, args
}

func (r *Registry) binding(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

func (r *Registry) constructor(id string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[id]
	return c, ok
}
