// Package middleware provides the framework middleware for conduit.
//
// Two families live here:
//   - Host middleware for the gin engine: CORS and per-IP rate limiting
//   - Dispatch middleware resolved through the container: the throttle
//     object ("throttle:rps,burst"), request id stamping and the default
//     OPTIONS preflight handler
//
// Example Usage:
//
//	limiters := middleware.NewLimiters(time.Minute)
//	middleware.Register(registry, limiters, cfg.RateLimit)
//	registry.MiddlewareAlias(middleware.Aliases())
//	k.Use(middleware.RequestID())
//	k.RegisterDefault(http.MethodOptions, middleware.Preflight())
package middleware
