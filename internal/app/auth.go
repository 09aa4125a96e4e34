package app

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/GriffinCanCode/conduit/internal/container"
	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
)

// Auth checks the bearer token of write requests. The token is compared
// verbatim unless it is a bcrypt hash. An empty token lets every request
// through.
type Auth struct {
	token string
}

// Params declares the request
func (a *Auth) Params() []container.Param {
	return []container.Param{container.Dep("request", xhttp.RequestType)}
}

// Handle rejects requests without the configured bearer token
func (a *Auth) Handle(args container.Args) error {
	if a.token == "" {
		return nil
	}
	req := container.Arg[*xhttp.Request](args, 0)
	if req == nil {
		return nil
	}
	got, ok := strings.CutPrefix(req.Header("Authorization", ""), "Bearer ")
	if ok && a.valid(got) {
		return nil
	}
	return exception.New("Unauthenticated",
		exception.WithStatus(http.StatusUnauthorized),
		exception.WithHeader("WWW-Authenticate", `Bearer realm="conduit"`))
}

func (a *Auth) valid(got string) bool {
	if isBcrypt(a.token) {
		return bcrypt.CompareHashAndPassword([]byte(a.token), []byte(got)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) == 1
}

func isBcrypt(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
