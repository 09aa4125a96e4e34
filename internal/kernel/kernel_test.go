package kernel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/conduit/internal/routing"
)

func serve(k *Kernel, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	k.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func text(s string) routing.Handler {
	return routing.Call(container.Fn(s, func() (any, error) { return s, nil }))
}

func loadRoutes(t *testing.T, k *Kernel, fn func(c *routing.Collector)) {
	t.Helper()
	require.NoError(t, k.LoadRoutes("", fn))
}

func page(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

func TestDispatchCapturesParams(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/users/{id}", routing.Options{}, routing.Call(container.Func{
			Name:   "show",
			Params: []container.Param{container.Value("id"), container.Dep("req", xhttp.RequestType)},
			Call: func(args container.Args) (any, error) {
				req := container.Arg[*xhttp.Request](args, 1)
				return "user " + args.String(0) + " via " + req.Method(), nil
			},
		}))
	})

	w := serve(k, http.MethodGet, "/users/42/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user 42 via GET", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(TimingHeader))
}

func TestPathParamBeatsTypedResolution(t *testing.T) {
	reg := container.NewRegistry()
	reg.Provide("model.user", container.Constructor{
		Build: func(container.Args) (any, error) { return "resolved model", nil },
	})
	k := New(WithRegistry(reg))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/users/{id}", routing.Options{}, routing.Call(container.Func{
			Params: []container.Param{container.Dep("id", "model.user")},
			Call: func(args container.Args) (any, error) {
				return args.Get(0), nil
			},
		}))
	})

	w := serve(k, http.MethodGet, "/users/42")
	assert.Equal(t, "42", w.Body.String())
}

func TestDispatchNotFound(t *testing.T) {
	k := New(WithName("demo"))
	loadRoutes(t, k, func(c *routing.Collector) { c.Get("/users", routing.Options{}, text("users")) })

	w := serve(k, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	doc := page(t, w)
	assert.Equal(t, "demo Error 404", doc.Find("title").Text())
	assert.True(t, strings.HasSuffix(doc.Find("h3").Text(), "] Not Found"), doc.Find("h3").Text())
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
	assert.Equal(t, "no-cache, private", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Date"))
}

func TestDispatchMethodNotAllowed(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) { c.Get("/users", routing.Options{}, text("users")) })

	w := serve(k, http.MethodPost, "/users")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
	assert.Contains(t, w.Body.String(), "[GET]")
}

func TestOptionsOnlyAlternateIsNotFound(t *testing.T) {
	k := New()
	k.RegisterDefault(http.MethodOptions, container.Fn("preflight", func() (any, error) { return "", nil }))
	loadRoutes(t, k, func(c *routing.Collector) { c.Get("/users", routing.Options{}, text("users")) })

	assert.Equal(t, http.StatusNotFound, serve(k, http.MethodDelete, "/nothing").Code)

	w := serve(k, http.MethodPost, "/users")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
	assert.Contains(t, w.Body.String(), "[GET]")

	assert.Equal(t, http.StatusOK, serve(k, http.MethodOptions, "/users").Code)
}

func TestHandlerReturningFalse(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/busy", routing.Options{}, routing.Call(container.Fn("busy", func() (any, error) { return false, nil })))
	})

	w := serve(k, http.MethodGet, "/busy")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	assert.Equal(t, "handle fail", w.Body.String())
}

type counter struct {
	mu   sync.Mutex
	runs []string
}

func (c *counter) add(s string) {
	c.mu.Lock()
	c.runs = append(c.runs, s)
	c.mu.Unlock()
}

type countingMiddleware struct {
	counter *counter
}

func (m *countingMiddleware) Params() []container.Param {
	return []container.Param{container.Optional("label", "default")}
}

func (m *countingMiddleware) Handle(args container.Args) error {
	m.counter.add(args.String(0))
	return nil
}

func TestMiddlewareRunsOncePerDispatch(t *testing.T) {
	runs := &counter{}
	reg := container.NewRegistry()
	reg.Provide("mw.count", container.Constructor{
		Build: func(container.Args) (any, error) { return &countingMiddleware{counter: runs}, nil },
	})
	reg.MiddlewareAlias(map[string]string{"count": "mw.count"})

	k := New(WithRegistry(reg))
	k.Use("count:global")
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Group(routing.Group{Middleware: []string{"count:group"}}, func(c *routing.Collector) {
			c.Get("/a", routing.Options{Middleware: []string{"mw.count"}}, text("a"))
		})
	})

	assert.Equal(t, http.StatusOK, serve(k, http.MethodGet, "/a").Code)
	assert.Equal(t, http.StatusOK, serve(k, http.MethodGet, "/a").Code)
	assert.Equal(t, []string{"global", "global"}, runs.runs)
}

func TestRouteMiddlewareArguments(t *testing.T) {
	runs := &counter{}
	reg := container.NewRegistry()
	reg.Provide("mw.count", container.Constructor{
		Build: func(container.Args) (any, error) { return &countingMiddleware{counter: runs}, nil },
	})
	reg.MiddlewareAlias(map[string]string{"count": "mw.count"})

	k := New(WithRegistry(reg))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/a", routing.Options{Middleware: []string{"count:route"}}, text("a"))
		c.Get("/b", routing.Options{Middleware: []string{"count"}}, text("b"))
	})

	serve(k, http.MethodGet, "/a")
	serve(k, http.MethodGet, "/b")
	assert.Equal(t, []string{"route", "default"}, runs.runs)
}

func TestMiddlewareErrorStopsPipeline(t *testing.T) {
	called := false
	k := New()
	k.Use(container.Fn("auth", func() (any, error) {
		return nil, exception.New("Unauthenticated", exception.WithStatus(http.StatusUnauthorized))
	}))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/", routing.Options{}, routing.Call(container.Fn("home", func() (any, error) {
			called = true
			return "home", nil
		})))
	})

	w := serve(k, http.MethodGet, "/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthenticated")
	assert.False(t, called)
}

func TestDefaultHandlerNotOverridingApplicationRoute(t *testing.T) {
	k := New()
	k.RegisterDefault(http.MethodOptions, container.Fn("default", func() (any, error) { return "default", nil }))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Options("/{any:.*}", routing.Options{}, text("custom"))
	})

	assert.Equal(t, "custom", serve(k, http.MethodOptions, "/x/y").Body.String())
}

func TestNoRoutes(t *testing.T) {
	k := New()
	w := serve(k, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "No route has been determined yet!")
}

func TestFinalizeClosesRegistration(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) { c.Get("/", routing.Options{}, text("home")) })
	require.NoError(t, k.Finalize())

	err := k.LoadRoutes("", func(c *routing.Collector) { c.Get("/late", routing.Options{}, text("late")) })
	assert.ErrorIs(t, err, exception.ErrInvalidRoute)
}

func TestPanicIsRecovered(t *testing.T) {
	k := New(WithDebug(false))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/panic", routing.Options{}, routing.Call(container.Fn("panic", func() (any, error) {
			panic("kaboom")
		})))
	})

	w := serve(k, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "kaboom")
	assert.NotContains(t, w.Body.String(), "<pre>")
}

func TestErrorPageShowsTraceInDebug(t *testing.T) {
	k := New(WithDebug(true))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/fail", routing.Options{}, routing.Call(container.Fn("fail", func() (any, error) {
			return nil, exception.New("<b>broken</b>", exception.WithStatus(http.StatusBadGateway), exception.WithDetails("upstream"))
		})))
	})

	w := serve(k, http.MethodGet, "/fail")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream")

	doc := page(t, w)
	assert.True(t, strings.HasSuffix(doc.Find("h3").Text(), "] broken"), doc.Find("h3").Text())
	assert.Zero(t, doc.Find("h3 b").Length())
	assert.Contains(t, doc.Find("pre").Text(), "kernel_test.go:")
}

func TestExceptionHandler(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/teapot", routing.Options{}, routing.Call(container.Fn("teapot", func() (any, error) {
			return nil, errors.New("short and stout")
		})))
	})

	var seen error
	k.SetExceptionHandler(ExceptionHandlerFunc(func(err error) any {
		seen = err
		resp := xhttp.NewResponse()
		resp.SetStatusCode(http.StatusTeapot)
		resp.SetContent("handled: " + err.Error())
		return resp
	}))

	w := serve(k, http.MethodGet, "/teapot")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "handled: short and stout", w.Body.String())
	assert.EqualError(t, seen, "short and stout")

	k.SetExceptionHandler(ExceptionHandlerFunc(func(err error) any {
		return exception.New("rewritten", exception.WithStatus(http.StatusConflict))
	}))
	w = serve(k, http.MethodGet, "/teapot")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "rewritten")
}

func TestSelfHandlingError(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Post("/items", routing.Options{}, routing.Call(container.Fn("create", func() (any, error) {
			return nil, xhttp.NewJSONException(map[string]string{"name": "required"}, http.StatusUnprocessableEntity)
		})))
	})

	w := serve(k, http.MethodPost, "/items")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"name":"required"}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

type greeting struct{ name string }

func (g greeting) Respond(resp *xhttp.Response) error {
	resp.SetHeader("Content-Type", "text/plain", true)
	resp.SetContent("hello " + g.name)
	return nil
}

func TestResultCoercion(t *testing.T) {
	custom := xhttp.NewResponse()
	custom.SetStatusCode(http.StatusCreated)
	custom.SetContent("custom")

	results := map[string]any{
		"/json":     xhttp.NewJSON(map[string]int{"n": 1}, http.StatusAccepted),
		"/renderer": greeting{name: "ada"},
		"/bytes":    []byte("raw"),
		"/nil":      nil,
		"/custom":   custom,
		"/number":   42,
	}

	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		for path, result := range results {
			result := result
			c.Get(path, routing.Options{}, routing.Call(container.Fn(path, func() (any, error) { return result, nil })))
		}
	})

	w := serve(k, http.MethodGet, "/json")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(TimingHeader))

	w = serve(k, http.MethodGet, "/renderer")
	assert.Equal(t, "hello ada", w.Body.String())
	assert.Equal(t, "text/plain; charset=UTF-8", w.Header().Get("Content-Type"))

	assert.Equal(t, "raw", serve(k, http.MethodGet, "/bytes").Body.String())

	w = serve(k, http.MethodGet, "/nil")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = serve(k, http.MethodGet, "/custom")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "custom", w.Body.String())

	assert.Equal(t, 42, k.Dispatch(httptest.NewRequest(http.MethodGet, "/number", nil)))
	w = serve(k, http.MethodGet, "/number")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "500 - Internal Server Error", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

type usersController struct{ prefix string }

func (u *usersController) Actions() map[string]container.Func {
	return map[string]container.Func{
		"Show": {
			Name:   "users::Show",
			Params: []container.Param{container.Value("id"), container.Dep("resp", xhttp.ResponseType)},
			Call: func(args container.Args) (any, error) {
				resp := container.Arg[*xhttp.Response](args, 1)
				resp.SetHeader("X-Controller", "users", true)
				return u.prefix + args.String(0), nil
			},
		},
		"Missing": {},
	}
}

type invokingController struct{}

func (invokingController) Invoke(method string, rh *RouteHandler, params map[string]string, req *xhttp.Request, resp *xhttp.Response, c *container.Container) (any, error) {
	return xhttp.NewJSON(map[string]any{
		"method": method,
		"params": params,
		"path":   req.Path(),
		"route":  rh.Route().Pattern,
		"same":   resp == rh.Response() && c == rh.Container(),
	}, http.StatusOK), nil
}

func TestControllers(t *testing.T) {
	reg := container.NewRegistry()
	reg.Provide("users", container.Constructor{
		Build: func(container.Args) (any, error) { return &usersController{prefix: "user:"}, nil },
	})
	reg.Provide("invoker", container.Constructor{
		Build: func(container.Args) (any, error) { return invokingController{}, nil },
	})
	reg.Provide("plain", container.Constructor{
		Build: func(container.Args) (any, error) { return struct{}{}, nil },
	})

	k := New(WithRegistry(reg))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/users/{id}", routing.Options{}, routing.Action("users", "Show"))
		c.Get("/users/{id}/gone", routing.Options{}, routing.Action("users", "Gone"))
		c.Get("/users/{id}/missing", routing.Options{}, routing.Action("users", "Missing"))
		c.Get("/invoke/{slug}", routing.Options{}, routing.Action("invoker", "Run"))
		c.Get("/plain", routing.Options{}, routing.Action("plain", "Index"))
		c.Get("/ghost", routing.Options{}, routing.Action("ghost", "Index"))
	})

	w := serve(k, http.MethodGet, "/users/7")
	assert.Equal(t, "user:7", w.Body.String())
	assert.Equal(t, "users", w.Header().Get("X-Controller"))

	w = serve(k, http.MethodGet, "/users/7/gone")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Method users::Gone not exists.")
	assert.Contains(t, serve(k, http.MethodGet, "/users/7/missing").Body.String(), "Method users::Missing not exists.")
	assert.Contains(t, serve(k, http.MethodGet, "/plain").Body.String(), "Method plain::Index not exists.")
	assert.Contains(t, serve(k, http.MethodGet, "/ghost").Body.String(), "ghost is not instantiable")

	w = serve(k, http.MethodGet, "/invoke/abc")
	assert.JSONEq(t, `{"method":"Run","params":{"slug":"abc"},"path":"/invoke/abc","route":"/invoke/{slug}","same":true}`, w.Body.String())
}

func TestUnresolvedHandlerParameter(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/", routing.Options{}, routing.Call(container.Func{
			Name:   "needs",
			Params: []container.Param{container.Value("missing"), container.Optional("page", 1), container.Nullable("cache", "cache")},
			Call:   func(container.Args) (any, error) { return "unreachable", nil },
		}))
		c.Get("/ok", routing.Options{}, routing.Call(container.Func{
			Params: []container.Param{container.Dep("c", container.Self), container.Optional("page", 1), container.Nullable("cache", "cache")},
			Call: func(args container.Args) (any, error) {
				_, isContainer := args.Get(0).(*container.Container)
				if !isContainer || args.Get(1) != 1 || args.Get(2) != nil {
					return false, nil
				}
				return "ok", nil
			},
		}))
	})

	w := serve(k, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "UNRESOLVED_DEPENDENCY")

	assert.Equal(t, "ok", serve(k, http.MethodGet, "/ok").Body.String())
}

func TestDispatchObservability(t *testing.T) {
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("test", nil)
	defer tracer.Close()

	k := New(WithMetrics(metrics), WithTracer(tracer))
	loadRoutes(t, k, func(c *routing.Collector) { c.Get("/users/{id}", routing.Options{}, text("user")) })

	serve(k, http.MethodGet, "/users/1")
	serve(k, http.MethodGet, "/nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("GET", "/users/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchErrors.WithLabelValues("ROUTE_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RoutesRegistered))
}

func TestConcurrentDispatch(t *testing.T) {
	runs := &counter{}
	k := New()
	k.Use(container.Fn("count", func() (any, error) {
		runs.add("x")
		return nil, nil
	}))
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/users/{id}", routing.Options{}, routing.Call(container.Func{
			Params: []container.Param{container.Value("id")},
			Call:   func(args container.Args) (any, error) { return args.String(0), nil },
		}))
	})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := serve(k, http.MethodGet, "/users/9")
			assert.Equal(t, "9", w.Body.String())
		}()
	}
	wg.Wait()
	assert.Len(t, runs.runs, 25)
}

func TestURL(t *testing.T) {
	k := New()
	loadRoutes(t, k, func(c *routing.Collector) {
		c.Get("/users/{id}", routing.Options{As: "users.show"}, text("u"))
	})

	url, ok := k.URL("users.show", "5")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(url, "/users/5"))
}
