package controlclient

import (
	"errors"
	"fmt"
)

// ErrTransport matches every *TransportError. Callers should use
// errors.Is() to check for it.
var ErrTransport = errors.New("controlclient: transport failed")

// TransportError describes a failed exchange with the control API: either
// a non-2xx response (StatusCode set) or a network failure (Err set).
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
