package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError indicates rejected input: split amounts that don't
// reconcile with the bill total, percentages that don't sum to 100, an empty
// participant list.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced bill, share or payment edge that does
// not exist.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// AuthorizationError indicates an actor attempting an operation their role
// does not grant.
type AuthorizationError struct {
	Message string
}

func (e AuthorizationError) Error() string {
	return e.Message
}

// ConflictError indicates a settlement transition requested from a state
// that does not support it, or a write that lost a concurrent-modification
// check.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string {
	return e.Message
}
