package container

import "fmt"

// Param declares one parameter of a constructor or callable
type Param struct {
	Name       string
	Type       string // container id; empty for scalar values
	Default    any
	HasDefault bool
	Nullable   bool
}

// Dep declares a parameter resolved by id
func Dep(name, typ string) Param {
	return Param{Name: name, Type: typ}
}

// Value declares a required scalar parameter
func Value(name string) Param {
	return Param{Name: name}
}

// Optional declares a scalar parameter with a default
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Nullable declares a parameter resolved by id that may be nil
func Nullable(name, typ string) Param {
	return Param{Name: name, Type: typ, Nullable: true}
}

// Args holds resolved arguments in parameter order
type Args []any

// Get returns argument i, nil when out of range
func (a Args) Get(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// String returns argument i formatted as a string
func (a Args) String(i int) string {
	switch v := a.Get(i).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Arg returns argument i as T, or the zero value when absent or of
// another type
func Arg[T any](a Args, i int) T {
	v, _ := a.Get(i).(T)
	return v
}

// Constructor builds an instance from resolved arguments
type Constructor struct {
	Params []Param
	Build  func(args Args) (any, error)
}

// Func is a callable with declared parameters. Handlers, middleware
// callbacks and command methods are Funcs.
type Func struct {
	Name   string
	Params []Param
	Call   func(args Args) (any, error)
}

// Fn wraps a callable that takes no parameters
func Fn(name string, call func() (any, error)) Func {
	return Func{
		Name: name,
		Call: func(Args) (any, error) { return call() },
	}
}

// Label names the callable in error messages
func (f Func) Label() string {
	if f.Name == "" {
		return "closure"
	}
	return f.Name
}
