package api

import (
	"errors"
	"fmt"
)

// ServerError is a rejection from the authority: a completed HTTP exchange
// with a non-2xx status. Detail carries the machine-readable explanation from
// the response body when the server sent one.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.Status)
	}
	return fmt.Sprintf("server rejected request (status %d): %s", e.Status, e.Detail)
}

// IsServerRejected reports whether err is a ServerError, returning it if so.
// Any other error from the adapter is a transport-level network failure.
func IsServerRejected(err error) (*ServerError, bool) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr, true
	}
	return nil, false
}
