// Package container resolves the dependencies of handlers, controllers and
// middleware.
//
// A Registry is shared by the whole process and holds constructors,
// bindings and middleware aliases. A Container is created for each
// dispatch; it caches resolved instances and tracks which middleware has
// already run.
//
// Constructors and callables declare their parameters explicitly:
//
//	reg.Provide("users.store", container.Constructor{
//		Params: []container.Param{container.Dep("db", "database")},
//		Build: func(args container.Args) (any, error) {
//			return NewStore(args.Get(0).(*DB)), nil
//		},
//	})
//
// Parameters resolve in a fixed order: a named override, a known type via
// Make, a default value, nil when nullable. Anything else is an
// unresolved dependency.
//
// Middleware references are either registered ids, optionally written as
// "alias:arg1,arg2", or named Func values. Each runs at most once per
// container.
package container
