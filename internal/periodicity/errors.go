package periodicity

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrEmptySet     = errors.New("set must not be empty")
	ErrDuplicate    = errors.New("set contains duplicates")
	ErrInconsistent = errors.New("inconsistent periodicity")

	ErrBuilderConsumed = errors.New("builder already used")

	ErrInvalidState    = errors.New("invalid periodicity state")
	ErrMalformedWindow = errors.New("malformed window")
	ErrWindowTooLarge  = errors.New("window too large")
)

// OutOfRangeError reports a scalar outside [Min, Max].
type OutOfRangeError struct {
	Field string
	Min   int
	Max   int
	Got   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Got)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

type EmptySetError struct {
	Field string
}

func (e *EmptySetError) Error() string {
	return fmt.Sprintf("%s must not be empty", e.Field)
}

func (e *EmptySetError) Is(target error) bool { return target == ErrEmptySet }

type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s contains duplicate values", e.Field)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// InconsistentError reports fields that are valid alone but contradict
// each other.
type InconsistentError struct {
	Reason string
}

func (e *InconsistentError) Error() string {
	return "inconsistent periodicity: " + e.Reason
}

func (e *InconsistentError) Is(target error) bool { return target == ErrInconsistent }

// IsValidationError reports whether err is one of the user-correctable
// validation failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrEmptySet) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInconsistent)
}

// ValidationField returns the field a validation error points at, or "" for
// cross-field failures.
func ValidationField(err error) string {
	var oor *OutOfRangeError
	var empty *EmptySetError
	var dup *DuplicateError
	switch {
	case errors.As(err, &oor):
		return oor.Field
	case errors.As(err, &empty):
		return empty.Field
	case errors.As(err, &dup):
		return dup.Field
	default:
		return ""
	}
}

// ResolverError signals a broken contract: resolve was handed a value that
// bypassed validation or a window it cannot expand.
type ResolverError struct {
	Kind   error
	Reason string
}

func (e *ResolverError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *ResolverError) Unwrap() error { return e.Kind }
