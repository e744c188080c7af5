package errorz

import (
	"errors"
	"fmt"

	"github.com/theatro/theatro/internal/domain/entity"
)

// Error classes. Every specific error below wraps exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage error")
)

// Storage signals returned by the database adapters.
var (
	ErrNoRecord        = fmt.Errorf("%w: record not found", ErrNotFound)
	ErrUniqueViolation = fmt.Errorf("%w: unique constraint violated", ErrConflict)
	ErrStaleRecord     = fmt.Errorf("%w: record changed since it was read", ErrConflict)
)

var (
	ErrInvalidAvailability = fmt.Errorf("%w: availability must be \"available\" or \"unavailable\"", ErrValidation)
	ErrInvalidDecision     = fmt.Errorf("%w: decision must be \"accepted\" or \"refused\"", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: unknown application status", ErrValidation)
	ErrInvalidEventKind    = fmt.Errorf("%w: event kind must be \"show\" or \"workshop\"", ErrValidation)
	ErrInvalidEvent        = fmt.Errorf("%w: invalid event attributes", ErrValidation)
	ErrInvalidMember       = fmt.Errorf("%w: invalid member attributes", ErrValidation)
	ErrNoRoles             = fmt.Errorf("%w: at least one role is required", ErrValidation)
	ErrRoleNotOffered      = fmt.Errorf("%w: role is not offered by this show", ErrValidation)
	ErrInvalidToken        = fmt.Errorf("%w: reset token is invalid or expired", ErrValidation)

	ErrEventNotFound       = fmt.Errorf("%w: event", ErrNotFound)
	ErrMemberNotFound      = fmt.Errorf("%w: member", ErrNotFound)
	ErrRoleNotFound        = fmt.Errorf("%w: role", ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("%w: application", ErrNotFound)

	ErrAlreadyProcessed        = fmt.Errorf("%w: application already processed", ErrConflict)
	ErrCannotAcceptUnavailable = fmt.Errorf("%w: cannot accept a member who is unavailable", ErrConflict)
	ErrFollowUpAlreadySent     = fmt.Errorf("%w: follow-up already sent for this workshop", ErrConflict)
	ErrConcurrentModification  = fmt.Errorf("%w: application kept changing while being processed", ErrConflict)
	ErrMailTaken               = fmt.Errorf("%w: a member with this mail already exists", ErrConflict)
	ErrPasswordAlreadySet      = fmt.Errorf("%w: password already set", ErrConflict)

	ErrNotManager = fmt.Errorf("%w: only managers and administrators can process applications", ErrForbidden)
)

// AlreadyProcessedError carries the status found on an application that was
// no longer pending.
type AlreadyProcessedError struct {
	ApplicationID string
	CurrentStatus entity.Status
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("application %s already processed (status: %s)", e.ApplicationID, e.CurrentStatus)
}

func (e *AlreadyProcessedError) Unwrap() error {
	return ErrAlreadyProcessed
}

// Storage wraps an unexpected persistence failure.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

type Kind string

const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindStorage    Kind = "storage"
	KindUnknown    Kind = "unknown"
)

// KindOf classifies err into one of the error classes.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrStorage):
		return KindStorage
	}
	return KindUnknown
}
