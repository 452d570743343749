package flow

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid flow transition")

// TransitionError means the operation is not allowed from the current state.
type TransitionError struct {
	Op    string
	State string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// RejectedError means the backend answered but refused the step.
type RejectedError struct {
	Op      string
	Message string
	Code    int
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Op + " rejected"
	}
	return e.Op + " rejected: " + e.Message
}
