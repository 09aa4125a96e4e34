package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/conduit/internal/container"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the host CORS configuration for origins.
func DefaultCORSConfig(origins ...string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"X-CSRF-Token",
			"Authorization",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a host CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"
	c := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    []string{RequestIDHeader, "micro-time"},
		AllowCredentials: cfg.AllowCredentials && !allowAll,
		MaxAge:           cfg.MaxAge,
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(c)
}

// Preflight is the default OPTIONS handler. It answers every preflight
// with permissive access control headers, keeping any value already set.
func Preflight() container.Func {
	return container.Func{
		Name:   "preflight",
		Params: []container.Param{container.Dep("response", xhttp.ResponseType)},
		Call: func(args container.Args) (any, error) {
			resp := container.Arg[*xhttp.Response](args, 0)
			if resp == nil {
				return nil, nil
			}
			for _, h := range []string{
				"Access-Control-Allow-Origin",
				"Access-Control-Allow-Methods",
				"Access-Control-Allow-Headers",
			} {
				resp.SetHeader(h, "*", false)
			}
			return resp, nil
		},
	}
}
