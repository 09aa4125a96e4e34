package app

import (
	"net/http"
	"net/mail"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/GriffinCanCode/conduit/internal/container"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/routing"
	"github.com/GriffinCanCode/conduit/internal/worker"
)

// UsersController serves the /api/users resource
type UsersController struct {
	store     *UserStore
	routes    *routing.Table
	publisher *worker.Publisher
}

// Assert declares the structural contract checked in strict mode
func (u *UsersController) Assert() map[string]container.Contract {
	return map[string]container.Contract{
		"Actions": {},
		"Find":    {Params: map[int]reflect.Type{0: reflect.TypeOf("")}},
	}
}

// Find returns the user with id
func (u *UsersController) Find(id string) (User, bool) {
	return u.store.Get(id)
}

// Actions lists the controller actions
func (u *UsersController) Actions() map[string]container.Func {
	return map[string]container.Func{
		"Index": {
			Name: "users::Index",
			Call: func(container.Args) (any, error) {
				return xhttp.NewJSON(map[string]any{"data": u.store.List()}, http.StatusOK), nil
			},
		},
		"Show": {
			Name:   "users::Show",
			Params: []container.Param{container.Value("id")},
			Call: func(args container.Args) (any, error) {
				user, ok := u.Find(args.String(0))
				if !ok {
					return nil, notFound(args.String(0))
				}
				return xhttp.NewJSON(map[string]any{"data": user}, http.StatusOK), nil
			},
		},
		"Store": {
			Name:   "users::Store",
			Params: []container.Param{container.Dep("request", xhttp.RequestType)},
			Call: func(args container.Args) (any, error) {
				return u.create(container.Arg[*xhttp.Request](args, 0))
			},
		},
		"Destroy": {
			Name: "users::Destroy",
			Params: []container.Param{
				container.Value("id"),
				container.Dep("response", xhttp.ResponseType),
			},
			Call: func(args container.Args) (any, error) {
				if !u.store.Delete(args.String(0)) {
					return nil, notFound(args.String(0))
				}
				resp := container.Arg[*xhttp.Response](args, 1)
				resp.SetStatusCode(http.StatusNoContent)
				return resp, nil
			},
		},
		"Welcome": {
			Name:   "users::Welcome",
			Params: []container.Param{container.Value("id")},
			Call: func(args container.Args) (any, error) {
				return u.welcome(args.String(0))
			},
		},
	}
}

func (u *UsersController) create(req *xhttp.Request) (any, error) {
	input, err := req.All()
	if err != nil {
		return nil, err
	}
	name := text(input["name"])
	email := text(input["email"])

	errs := map[string]string{}
	if name == "" {
		errs["name"] = "The name field is required."
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "The email must be a valid email address."
	}
	if len(errs) > 0 {
		return nil, xhttp.NewJSONException(map[string]any{"errors": errs}, http.StatusUnprocessableEntity)
	}

	user := u.store.Create(name, email)
	out := xhttp.NewJSON(map[string]any{"data": user}, http.StatusCreated)
	if u.routes != nil {
		if loc, ok := u.routes.URL("api.users.show", user.ID); ok {
			out.WithHeader("Location", loc)
		}
	}
	return out, nil
}

func (u *UsersController) welcome(id string) (any, error) {
	user, ok := u.Find(id)
	if !ok {
		return nil, notFound(id)
	}
	if u.publisher == nil {
		return nil, unavailable()
	}
	file, published, err := u.publisher.Publish(worker.NewJob(WelcomeCommand, map[string]any{
		"name":  user.Name,
		"email": user.Email,
	}))
	if err != nil {
		return nil, err
	}
	if !published {
		return nil, unavailable()
	}
	return xhttp.NewJSON(map[string]any{
		"queued": true,
		"job":    filepath.Base(file),
	}, http.StatusAccepted), nil
}

func notFound(id string) error {
	return xhttp.NewJSONException(map[string]any{"error": "User not found", "id": id}, http.StatusNotFound)
}

func unavailable() error {
	return xhttp.NewJSONException(map[string]any{"error": "Background jobs are disabled"}, http.StatusServiceUnavailable)
}

func text(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
