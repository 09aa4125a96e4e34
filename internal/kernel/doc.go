// Package kernel dispatches requests through the route table, the
// dependency container and the matched handler.
//
// One dispatch:
//
//  1. creates the response and stamps the micro-time header
//  2. creates a container seeded with the request and response
//  3. runs global middleware
//  4. matches the route (404 / 405 on failure)
//  5. runs route middleware, skipping any that already ran
//  6. invokes the handler and coerces its result into the response
//
// Errors and panics at any step are turned into a response by the
// registered ExceptionHandler, by the error itself when it implements
// exception.Handler, or by the built-in error page.
//
// The route table is finalized on the first dispatch: default handlers
// are attached to the catch-all pattern and registration is closed.
//
// Dispatch returns whatever the pipeline produced. ServeHTTP writes a
// *http.Response result and answers anything else with a plain 500.
package kernel
