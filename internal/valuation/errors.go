package valuation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSubjectProperty is returned before any search when the
	// subject is missing required data.
	ErrInvalidSubjectProperty = errors.New("invalid subject property")

	// ErrInsufficientSamples is returned when no comparable was found at any
	// cascade tier. The accompanying result is flagged and must not be read
	// as a zero valuation.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrCollaboratorUnavailable wraps repository and resolver failures that
	// the cascade absorbed.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// ValidationError describes which subject field failed the precondition check
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidSubjectProperty)
func (e *ValidationError) Unwrap() error {
	return ErrInvalidSubjectProperty
}

// Collaborator operations recorded on absorbed failures
const (
	OperationRepository       = "repository"
	OperationNeighborResolver = "neighbor_resolver"
)

// CollaboratorError is a repository or resolver failure tagged with the
// operation that produced it.
type CollaboratorError struct {
	Operation string
	Call      string
	Err       error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCollaboratorUnavailable, e.Call, e.Err)
}

// Unwrap matches both ErrCollaboratorUnavailable and the underlying cause
func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaboratorUnavailable, e.Err}
}
