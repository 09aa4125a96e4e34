// Package exception defines the error type raised across the dispatch
// pipeline.
//
// An Exception carries a unique identifier, an HTTP status, a machine
// readable kind and a list of details. Its Error string is prefixed with
// the identifier so a rendered error page can be matched to a log line:
//
//	[4f1c...] Not Found
//
// Kinds map onto sentinel errors so callers can use errors.Is:
//
//	if errors.Is(err, exception.ErrRouteNotFound) { ... }
//
// Errors that know how to turn themselves into a response implement
// Handler. The dispatcher prefers a registered exception handler, then
// the error's own Handler, then its built-in error page.
package exception
