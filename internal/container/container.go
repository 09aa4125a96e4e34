package container

import (
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

// Handler is implemented by middleware instances
type Handler interface {
	Handle(args Args) error
}

// ParamDeclarer lets a middleware instance declare the parameters of its
// Handle method
type ParamDeclarer interface {
	Params() []Param
}

// Container resolves instances for one dispatch. It is not safe for
// concurrent use.
type Container struct {
	registry  *Registry
	instances map[string]any
	done      map[string]bool
}

// New creates a container seeded with instances
func New(registry *Registry, instances map[string]any) *Container {
	c := &Container{
		registry:  registry,
		instances: make(map[string]any, len(instances)),
		done:      make(map[string]bool),
	}
	for k, v := range instances {
		c.instances[k] = v
	}
	return c
}

// Registry returns the shared registry
func (c *Container) Registry() *Registry { return c.registry }

// Instance stores obj under id. An existing instance is kept unless
// replace is set; the result reports whether obj was stored.
func (c *Container) Instance(id string, obj any, replace bool) bool {
	if _, exists := c.instances[id]; exists && !replace {
		return false
	}
	c.instances[id] = obj
	return true
}

// Bind delegates to the shared registry
func (c *Container) Bind(abstract string, concrete any, replace bool) any {
	return c.registry.Bind(abstract, concrete, replace)
}

// Has reports whether id resolves in this container
func (c *Container) Has(id string) bool {
	if _, ok := c.instances[id]; ok {
		return true
	}
	return c.registry.Has(id)
}

// Make resolves id
func (c *Container) Make(id string) (any, error) {
	return c.MakeWith(id, nil)
}

// MakeWith resolves id with named constructor overrides. Overrides are
// passed on to nested dependencies.
func (c *Container) MakeWith(id string, overrides map[string]any) (any, error) {
	return c.resolve(id, overrides, 0)
}

const maxDepth = 32

func (c *Container) resolve(id string, overrides map[string]any, depth int) (any, error) {
	if id == Self {
		return c, nil
	}
	if obj, ok := c.instances[id]; ok {
		return obj, nil
	}
	if depth > maxDepth {
		return nil, exception.New(fmt.Sprintf("Dependency chain for %s is too deep", id),
			exception.WithKind(exception.KindUnresolvedDependency),
			exception.WithStatus(http.StatusInternalServerError))
	}

	target := id
	if b, ok := c.registry.binding(id); ok {
		name, isID := b.(string)
		if !isID {
			return c.checked(b)
		}
		if name != id {
			return c.resolve(name, overrides, depth+1)
		}
	}

	ctor, ok := c.registry.constructor(target)
	if !ok {
		return nil, exception.New(fmt.Sprintf("%s is not instantiable", target),
			exception.WithKind(exception.KindUnresolvedDependency),
			exception.WithStatus(http.StatusInternalServerError))
	}

	args := make(Args, 0, len(ctor.Params))
	for _, p := range ctor.Params {
		if v, ok := overrides[p.Name]; ok {
			args = append(args, v)
			continue
		}
		if p.Type != "" && c.Has(p.Type) {
			dep, err := c.resolve(p.Type, overrides, depth+1)
			if err != nil {
				return nil, err
			}
			args = append(args, dep)
			continue
		}
		switch {
		case p.HasDefault:
			args = append(args, p.Default)
		case p.Nullable:
			args = append(args, nil)
		default:
			return nil, exception.Unresolved(p.Name, target)
		}
	}

	obj, err := ctor.Build(args)
	if err != nil {
		return nil, err
	}
	return c.checked(obj)
}

// Resolve resolves id as T
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	obj, err := c.Make(id)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, exception.New(fmt.Sprintf("%s resolved to %T, not %T", id, obj, zero),
			exception.WithKind(exception.KindUnresolvedDependency),
			exception.WithStatus(http.StatusInternalServerError))
	}
	return typed, nil
}

func (c *Container) checked(obj any) (any, error) {
	if !c.registry.Strict() {
		return obj, nil
	}
	if st, ok := obj.(StronglyTyped); ok {
		if err := Assert(st); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Middleware runs ref unless it already ran in this container. ref is a
// registered id or a Func; args are positional values from the
// middleware reference string.
func (c *Container) Middleware(ref any, args []string) error {
	switch m := ref.(type) {
	case Func:
		return c.runOnce(m.Name, func() error { return c.callback(m, args) })
	case *Func:
		return c.runOnce(m.Name, func() error { return c.callback(*m, args) })
	case string:
		if m == "" {
			return nil
		}
		return c.runOnce(m, func() error { return c.object(m, args) })
	default:
		return exception.New(fmt.Sprintf("Unsupported middleware reference %T", ref),
			exception.WithStatus(http.StatusInternalServerError))
	}
}

// Ran reports whether the middleware key already ran
func (c *Container) Ran(key string) bool { return c.done[key] }

func (c *Container) runOnce(key string, run func() error) error {
	if key != "" && c.done[key] {
		return nil
	}
	if err := run(); err != nil {
		return err
	}
	if key != "" {
		c.done[key] = true
	}
	return nil
}

func (c *Container) callback(fn Func, positional []string) error {
	var args Args
	if len(fn.Params) > 0 {
		var err error
		if args, err = c.Args(fn.Params, positional); err != nil {
			return err
		}
		if len(args) < len(fn.Params) {
			return exception.TooFewArguments(fn.Label())
		}
	}
	_, err := fn.Call(args)
	return err
}

func (c *Container) object(id string, positional []string) error {
	if !c.Has(id) {
		return exception.New(fmt.Sprintf("Middleware %s is not registered", id),
			exception.WithKind(exception.KindUnresolvedDependency),
			exception.WithStatus(http.StatusInternalServerError))
	}
	obj, err := c.Make(id)
	if err != nil {
		return err
	}
	h, ok := obj.(Handler)
	if !ok {
		return nil
	}

	var args Args
	if pd, ok := obj.(ParamDeclarer); ok {
		params := pd.Params()
		if args, err = c.Args(params, positional); err != nil {
			return err
		}
		if len(args) < len(params) {
			return exception.TooFewArguments(id + "::Handle")
		}
	}
	return h.Handle(args)
}

// Args resolves params for a middleware or command call: the container
// itself, a known type, the next positional value, a default, nil when
// nullable. Parameters that resolve to nothing are left out, so the
// result may be shorter than params.
func (c *Container) Args(params []Param, positional []string) (Args, error) {
	args := make(Args, 0, len(params))
	for _, p := range params {
		switch {
		case p.Type == Self:
			args = append(args, c)
		case p.Type != "" && c.Has(p.Type):
			dep, err := c.Make(p.Type)
			if err != nil {
				return nil, err
			}
			args = append(args, dep)
		case len(positional) > 0:
			args = append(args, positional[0])
			positional = positional[1:]
		case p.HasDefault:
			args = append(args, p.Default)
		case p.Nullable:
			args = append(args, nil)
		}
	}
	return args, nil
}
