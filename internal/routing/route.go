package routing

import (
	"strings"

	"github.com/GriffinCanCode/conduit/internal/container"
)

// Methods lists the verbs a route may be registered under
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "TRACE", "CONNECT", "OPTIONS"}

// ValidMethod reports whether method is a supported verb
func ValidMethod(method string) bool {
	method = strings.ToUpper(method)
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Handler is either a callable or a controller action
type Handler struct {
	Func       *container.Func
	Controller string
	Method     string
}

// Call wraps a callable handler
func Call(fn container.Func) Handler {
	return Handler{Func: &fn}
}

// Action references method of the controller registered under controller
func Action(controller, method string) Handler {
	return Handler{Controller: controller, Method: method}
}

// IsCallable reports whether the handler is a callable
func (h Handler) IsCallable() bool { return h.Func != nil && h.Func.Call != nil }

// Valid reports whether the handler can be invoked
func (h Handler) Valid() bool {
	return h.IsCallable() || (h.Controller != "" && h.Method != "")
}

// String describes the handler for logs
func (h Handler) String() string {
	if h.IsCallable() {
		return h.Func.Label()
	}
	return h.Controller + "::" + h.Method
}

// Route is one registered method and pattern
type Route struct {
	Method     string
	Pattern    string
	Handler    Handler
	Middleware []string
	Name       string
	// Default marks a catch-all injected for a verb the application did
	// not route itself. It is not listed as an allowed method next to
	// real routes.
	Default bool
}

// Status is the outcome of a lookup
type Status int

const (
	NotFound Status = iota
	Found
	MethodNotAllowed
)

// Match is the result of a lookup
type Match struct {
	Status  Status
	Route   *Route
	Params  map[string]string
	Allowed []string
}
