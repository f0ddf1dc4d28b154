package flowchart

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation names a node or connection
	// id that is not in the graph. Nothing is changed.
	ErrNotFound = errors.New("flowchart: not found")

	// ErrValidationRejected is matched by every *ValidationError.
	ErrValidationRejected = errors.New("flowchart: connection rejected")

	// ErrDuplicateID is returned when restoring or loading an element whose
	// id is already taken.
	ErrDuplicateID = errors.New("flowchart: duplicate id")

	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = errors.New("flowchart: nothing to undo")

	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("flowchart: nothing to redo")
)

// Rejection reasons reported by CanConnect.
const (
	ReasonSelfLoop       = "self-loop"
	ReasonConsumerSource = "consumers cannot send"
	ReasonProducerTarget = "producers cannot receive"
	ReasonDuplicate      = "duplicate connection"
)

// ValidationError is a rejected connection attempt.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "flowchart: connection rejected: " + e.Reason
}

// Is makes errors.Is(err, ErrValidationRejected) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationRejected
}

// ParseError reports a document that cannot be loaded. The current
// in-memory document is never touched when one is returned.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flowchart: parse: %s: %v", e.Reason, e.Err)
	}
	return "flowchart: parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reject builds a *ValidationError for reason.
func Reject(reason string) error {
	return &ValidationError{Reason: reason}
}
