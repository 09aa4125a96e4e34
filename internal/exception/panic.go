package exception

import (
	"fmt"
	"net/http"
)

// FromPanic converts a recovered panic value into an exception.
// Call it directly from the deferred recover so the stack starts at the
// panicking frame.
func FromPanic(v any) *Exception {
	if err, ok := v.(error); ok {
		if e, ok := err.(*Exception); ok {
			return e
		}
		return newAt(4, err.Error(), WithKind(KindPanic), WithStatus(http.StatusInternalServerError), WithCause(err))
	}
	return newAt(4, fmt.Sprint(v), WithKind(KindPanic), WithStatus(http.StatusInternalServerError))
}
