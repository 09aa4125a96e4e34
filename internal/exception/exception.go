package exception

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies an exception
type Kind string

const (
	KindGeneric              Kind = "GENERIC"
	KindRouteNotFound        Kind = "ROUTE_NOT_FOUND"
	KindMethodNotAllowed     Kind = "METHOD_NOT_ALLOWED"
	KindDuplicateRoute       Kind = "DUPLICATE_ROUTE"
	KindUnresolvedDependency Kind = "UNRESOLVED_DEPENDENCY"
	KindClassInvalid         Kind = "CLASS_INVALID"
	KindTooFewArguments      Kind = "TOO_FEW_ARGUMENTS"
	KindHandlerFailure       Kind = "HANDLER_FAILURE"
	KindInvalidRoute         Kind = "INVALID_ROUTE"
	KindPanic                Kind = "PANIC"
)

var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrMethodNotAllowed     = errors.New("method not allowed")
	ErrDuplicateRoute       = errors.New("duplicate route")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrClassInvalid         = errors.New("structural assertion failed")
	ErrTooFewArguments      = errors.New("too few arguments")
	ErrHandlerFailure       = errors.New("handler failure")
	ErrInvalidRoute         = errors.New("invalid route")
)

var sentinels = map[Kind]error{
	KindRouteNotFound:        ErrRouteNotFound,
	KindMethodNotAllowed:     ErrMethodNotAllowed,
	KindDuplicateRoute:       ErrDuplicateRoute,
	KindUnresolvedDependency: ErrUnresolvedDependency,
	KindClassInvalid:         ErrClassInvalid,
	KindTooFewArguments:      ErrTooFewArguments,
	KindHandlerFailure:       ErrHandlerFailure,
	KindInvalidRoute:         ErrInvalidRoute,
}

// Handler is implemented by errors that produce their own response
type Handler interface {
	Handle() any
}

const maxFrames = 32

// Exception is the framework error type
type Exception struct {
	id      string
	message string
	kind    Kind
	status  int
	details []any
	header  http.Header
	cause   error
	file    string
	line    int
	stack   []uintptr
}

// Option configures an Exception
type Option func(*Exception)

// WithStatus sets the HTTP status of the exception
func WithStatus(status int) Option {
	return func(e *Exception) { e.status = status }
}

// WithKind sets the kind of the exception
func WithKind(kind Kind) Option {
	return func(e *Exception) { e.kind = kind }
}

// WithDetails appends detail entries to the payload
func WithDetails(details ...any) Option {
	return func(e *Exception) { e.details = append(e.details, details...) }
}

// WithHeader adds a header sent with the rendered error response
func WithHeader(key, value string) Option {
	return func(e *Exception) {
		if e.header == nil {
			e.header = http.Header{}
		}
		e.header.Add(key, value)
	}
}

// WithCause records the underlying error
func WithCause(err error) Option {
	return func(e *Exception) { e.cause = err }
}

// New creates an exception captured at the caller
func New(message string, opts ...Option) *Exception {
	return newAt(3, message, opts...)
}

// Newf creates an exception with a formatted message
func Newf(format string, args ...any) *Exception {
	return newAt(3, fmt.Sprintf(format, args...))
}

func newAt(skip int, message string, opts ...Option) *Exception {
	e := &Exception{
		id:      uuid.NewString(),
		message: message,
		kind:    KindGeneric,
	}
	for _, opt := range opts {
		opt(e)
	}

	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pcs)
	e.stack = pcs[:n]
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			e.file, e.line = frame.File, frame.Line
			break
		}
		if !more {
			break
		}
	}
	return e
}

// Wrap returns err as an *Exception. Errors that already are one are
// returned unchanged; anything else is wrapped at the caller.
func Wrap(err error) *Exception {
	if err == nil {
		return nil
	}
	var e *Exception
	if errors.As(err, &e) {
		return e
	}
	return newAt(3, err.Error(), WithCause(err))
}

// Error returns the message prefixed with the exception id
func (e *Exception) Error() string {
	return fmt.Sprintf("[%s] %s", e.id, e.message)
}

// Is matches the sentinel error for the exception kind
func (e *Exception) Is(target error) bool {
	if s, ok := sentinels[e.kind]; ok {
		return s == target
	}
	return false
}

// Unwrap returns the underlying cause
func (e *Exception) Unwrap() error { return e.cause }

func (e *Exception) ID() string      { return e.id }
func (e *Exception) Message() string { return e.message }
func (e *Exception) Kind() Kind      { return e.kind }
func (e *Exception) StatusCode() int { return e.status }
func (e *Exception) Details() []any  { return e.details }
func (e *Exception) File() string    { return e.file }
func (e *Exception) Line() int       { return e.line }

// Header returns the headers to send with the error response
func (e *Exception) Header() http.Header {
	if e.header == nil {
		return http.Header{}
	}
	return e.header.Clone()
}

// Payload returns the structured error data
func (e *Exception) Payload() map[string]any {
	payload := map[string]any{
		"id":  e.id,
		"key": string(e.kind),
	}
	if e.status != 0 {
		payload["status_code"] = e.status
	}
	if len(e.details) > 0 {
		payload["details"] = e.details
	}
	return payload
}

// Trace formats the captured call stack, one frame per line
func (e *Exception) Trace() string {
	var b strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for i := 0; ; i++ {
		frame, more := frames.Next()
		if frame.Function == "" && !more {
			break
		}
		fmt.Fprintf(&b, "#%d %s(%d): %s\n", i, frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// StatusFor returns the HTTP status to render for err. Exceptions with a
// status in the 4xx or 5xx range keep it; everything else is 500.
func StatusFor(err error) int {
	var e *Exception
	if errors.As(err, &e) && e.status >= 400 && e.status < 600 {
		return e.status
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of err, or KindGeneric for foreign errors
func KindOf(err error) Kind {
	var e *Exception
	if errors.As(err, &e) {
		return e.kind
	}
	return KindGeneric
}
