package command

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every parameter validation failure.
var ErrMalformed = errors.New("malformed command")

// MalformedError describes why a recognised command could not be parsed.
type MalformedError struct {
	Kind   Kind
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("command /%s: %s", e.Kind, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(k Kind, format string, args ...any) error {
	return &MalformedError{Kind: k, Reason: fmt.Sprintf(format, args...)}
}
