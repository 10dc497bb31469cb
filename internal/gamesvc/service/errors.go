package service

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition rejects an action whose caller or state preconditions
// do not hold. Nothing is written when it is returned.
var ErrInvalidTransition = errors.New("invalid transition")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidTransition}, args...)...)
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
}
