package app

import (
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/conduit/internal/container"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/routing"
	"github.com/GriffinCanCode/conduit/internal/view"
)

func (a *App) webRoutes(c *routing.Collector) {
	c.Get("/", routing.Options{As: "home"}, routing.Call(container.Func{
		Name:   "home",
		Params: []container.Param{container.Nullable("views", ViewsID)},
		Call: func(args container.Args) (any, error) {
			views := container.Arg[*view.Engine](args, 0)
			if views == nil {
				return a.cfg.App.Name, nil
			}
			return views.View("home", map[string]any{
				"title":  a.cfg.App.Name,
				"routes": a.kernel.Routes().Len(),
				"app":    map[string]any{"name": a.cfg.App.Name, "url": a.cfg.App.URL},
			})
		},
	}))

	c.Get("/health", routing.Options{As: "health"}, routing.Call(container.Fn("health", func() (any, error) {
		return xhttp.NewJSON(map[string]any{
			"status": "ok",
			"name":   a.cfg.App.Name,
			"routes": a.kernel.Routes().Len(),
			"uptime": a.Uptime().Round(time.Millisecond).String(),
		}, http.StatusOK), nil
	})))

	c.Get("/files/{any:.*}", routing.Options{As: "files"}, routing.Call(container.Func{
		Name:   "files",
		Params: []container.Param{container.Optional(routing.AnyParam, "")},
		Call: func(args container.Args) (any, error) {
			rel := path.Clean("/" + args.String(0))
			f, err := xhttp.NewFile(filepath.Join(a.cfg.Server.DocumentRoot, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			return f.AsDownload(path.Base(rel)), nil
		},
	}))
}

func (a *App) apiRoutes(c *routing.Collector) {
	c.SetAs("api")
	c.SetMiddleware("throttle")

	c.Group(routing.Group{Prefix: "users", As: "users"}, func(c *routing.Collector) {
		c.Get("/", routing.Options{As: "index"}, routing.Action(UsersID, "Index"))
		c.Get("/{id}", routing.Options{As: "show"}, routing.Action(UsersID, "Show"))

		c.Group(routing.Group{Middleware: routing.ParseMiddleware("auth")}, func(c *routing.Collector) {
			c.Post("/", routing.Options{As: "store"}, routing.Action(UsersID, "Store"))
			c.Delete("/{id}", routing.Options{As: "destroy"}, routing.Action(UsersID, "Destroy"))
			c.Post("/{id}/welcome", routing.Options{As: "welcome"}, routing.Action(UsersID, "Welcome"))
		})
	})
}
