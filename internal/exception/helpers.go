package exception

import (
	"fmt"
	"net/http"
	"strings"
)

// NotFound reports that no route matched uri
func NotFound(uri string) *Exception {
	return newAt(3, "Not Found",
		WithKind(KindRouteNotFound),
		WithStatus(http.StatusNotFound),
		WithDetails(fmt.Sprintf("The URI %q was not found", uri)))
}

// MethodNotAllowed reports that uri exists under other methods only
func MethodNotAllowed(method string, allowed []string) *Exception {
	return newAt(3, "Method Not Allowed",
		WithKind(KindMethodNotAllowed),
		WithStatus(http.StatusMethodNotAllowed),
		WithHeader("Allow", strings.Join(allowed, ", ")),
		WithDetails(fmt.Sprintf("Method %q is not in list [%s]", method, strings.Join(allowed, ", "))))
}

// DuplicateRoute reports a second registration of method and pattern
func DuplicateRoute(method, pattern string) *Exception {
	return newAt(3, fmt.Sprintf("Route %s %s already exists", method, pattern),
		WithKind(KindDuplicateRoute),
		WithStatus(http.StatusInternalServerError))
}

// Unresolved reports a parameter the container could not satisfy
func Unresolved(param, target string) *Exception {
	return newAt(3, fmt.Sprintf("Could not resolve dependency for parameter %q of %s", param, target),
		WithKind(KindUnresolvedDependency),
		WithStatus(http.StatusInternalServerError))
}

// TooFewArguments reports a call with fewer resolved arguments than
// declared parameters
func TooFewArguments(target string) *Exception {
	return newAt(3, fmt.Sprintf("Too few parameters passed to the function: %s", target),
		WithKind(KindTooFewArguments),
		WithStatus(http.StatusInternalServerError))
}

// ClassInvalid collects structural assertion violations for target
func ClassInvalid(target string, violations []string) *Exception {
	details := make([]any, len(violations))
	for i, v := range violations {
		details[i] = v
	}
	return newAt(3, fmt.Sprintf("%s does not satisfy its declared contract", target),
		WithKind(KindClassInvalid),
		WithStatus(http.StatusInternalServerError),
		WithDetails(details...))
}

// HandlerFailure is the error recorded when a handler declines a request
func HandlerFailure() *Exception {
	return newAt(3, "handle fail",
		WithKind(KindHandlerFailure),
		WithStatus(http.StatusServiceUnavailable),
		WithHeader("Retry-After", "3600"))
}
