package deck

import (
	"errors"
	"fmt"
)

// RejectReason is the machine-readable code attached to a precondition
// rejection so the client can show a targeted message.
type RejectReason string

const (
	ReasonInvalidZoneForCategory RejectReason = "InvalidZoneForCategory"
	ReasonSingleCardZoneOccupied RejectReason = "SingleCardZoneOccupied"
	ReasonCardLimitExceeded      RejectReason = "CardLimitExceeded"
)

// PreconditionError reports a mutation rejected before any state change.
// The operation is a no-op; the deck is untouched.
type PreconditionError struct {
	Reason  RejectReason
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// ConflictError reports a persistence failure after an optimistic local
// update was applied. The coordinator has already discarded its local state
// and reloaded the authoritative deck; Err is the underlying persistence
// error.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("deck state reloaded after persistence failure: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

var (
	ErrDeckNotFound  = errors.New("deck not found")
	ErrCardNotFound  = errors.New("card not found")
	ErrEntryNotFound = errors.New("deck entry not found")
)
