// Package selection chooses the next interview question by expected Fisher information.
package selection

import "fmt"

// Error represents a fatal error during question selection, such as a malformed pool item
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
