package control

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for control surface failures.
// Callers should use errors.Is() to check for these.
var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("control: validation failed")

	// ErrSeedFile indicates a seed file could not be read or parsed.
	ErrSeedFile = errors.New("control: invalid seed file")
)

// Issue is one schema violation, located by a path such as
// "roles[3].enforcement.sessionTimeoutMinutes".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports every issue found while validating a record or
// a whole surface. Op names the operation that was rejected.
type ValidationError struct {
	Op     string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("control: %s: validation failed", e.Op)
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("control: %s: validation failed: %s", e.Op, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
