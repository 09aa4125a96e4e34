package kernel

import (
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/routing"
)

// Invoker is implemented by controllers that route their own actions
type Invoker interface {
	Invoke(method string, rh *RouteHandler, params map[string]string, req *xhttp.Request, resp *xhttp.Response, c *container.Container) (any, error)
}

// Controller exposes its actions by method name
type Controller interface {
	Actions() map[string]container.Func
}

// RouteHandler invokes the handler of a matched route
type RouteHandler struct {
	route     *routing.Route
	params    map[string]string
	request   *xhttp.Request
	response  *xhttp.Response
	container *container.Container
}

// NewRouteHandler binds a matched route to one dispatch
func NewRouteHandler(match routing.Match, req *xhttp.Request, resp *xhttp.Response, c *container.Container) *RouteHandler {
	params := match.Params
	if params == nil {
		params = map[string]string{}
	}
	return &RouteHandler{
		route:     match.Route,
		params:    params,
		request:   req,
		response:  resp,
		container: c,
	}
}

func (h *RouteHandler) Route() *routing.Route           { return h.route }
func (h *RouteHandler) Params() map[string]string       { return h.params }
func (h *RouteHandler) Middleware() []string            { return h.route.Middleware }
func (h *RouteHandler) Request() *xhttp.Request         { return h.request }
func (h *RouteHandler) Response() *xhttp.Response       { return h.response }
func (h *RouteHandler) Container() *container.Container { return h.container }

// Handle invokes the handler. A handler that cannot be invoked yields
// false, which the dispatcher turns into a 503.
func (h *RouteHandler) Handle() (any, error) {
	handler := h.route.Handler
	if !handler.Valid() {
		return false, nil
	}
	if handler.IsCallable() {
		return h.call(*handler.Func)
	}

	obj, err := h.container.Make(handler.Controller)
	if err != nil {
		return nil, err
	}
	switch ctrl := obj.(type) {
	case Invoker:
		result, err := ctrl.Invoke(handler.Method, h, h.params, h.request, h.response, h.container)
		if err != nil {
			return nil, err
		}
		return h.parseResult(result)
	case Controller:
		fn, ok := ctrl.Actions()[handler.Method]
		if !ok || fn.Call == nil {
			return nil, missingAction(handler)
		}
		return h.call(fn)
	default:
		return nil, missingAction(handler)
	}
}

func missingAction(handler routing.Handler) error {
	return exception.New(fmt.Sprintf("Method %s::%s not exists.", handler.Controller, handler.Method),
		exception.WithKind(exception.KindUnresolvedDependency),
		exception.WithStatus(http.StatusInternalServerError))
}

func (h *RouteHandler) call(fn container.Func) (any, error) {
	var args container.Args
	if len(fn.Params) > 0 {
		var err error
		if args, err = h.PrepareArgs(fn); err != nil {
			return nil, err
		}
	}
	result, err := fn.Call(args)
	if err != nil {
		return nil, err
	}
	if b, ok := result.(bool); ok && !b {
		return false, nil
	}
	return h.parseResult(result)
}

// PrepareArgs resolves the parameters of fn: a path parameter with the
// same name, the container, the request, the response, a known type, a
// default, nil when nullable.
func (h *RouteHandler) PrepareArgs(fn container.Func) (container.Args, error) {
	args := make(container.Args, 0, len(fn.Params))
	for _, p := range fn.Params {
		if v, ok := h.params[p.Name]; ok {
			args = append(args, v)
			continue
		}
		switch {
		case p.Type == container.Self:
			args = append(args, h.container)
		case p.Type == xhttp.RequestType:
			args = append(args, h.request)
		case p.Type == xhttp.ResponseType:
			args = append(args, h.response)
		case p.Type != "" && h.container.Has(p.Type):
			dep, err := h.container.Make(p.Type)
			if err != nil {
				return nil, err
			}
			args = append(args, dep)
		case p.HasDefault:
			args = append(args, p.Default)
		case p.Nullable:
			args = append(args, nil)
		default:
			return nil, exception.Unresolved(p.Name, fn.Label())
		}
	}
	return args, nil
}

// parseResult coerces a handler result into the dispatch response.
// A nil result yields the dispatch response as handlers left it, which is
// 200 with an empty body unless they wrote to it. Results of unknown shape
// are returned unchanged.
func (h *RouteHandler) parseResult(result any) (any, error) {
	switch r := result.(type) {
	case nil:
		return h.response, nil
	case *xhttp.Response:
		return r, nil
	case xhttp.Payload:
		if err := h.response.Merge(r); err != nil {
			return nil, err
		}
		return h.response, nil
	case xhttp.Renderer:
		if err := r.Respond(h.response); err != nil {
			return nil, err
		}
		return h.response, nil
	case string:
		h.response.SetContent(r)
		return h.response, nil
	case []byte:
		h.response.SetBytes(r)
		return h.response, nil
	default:
		return result, nil
	}
}
