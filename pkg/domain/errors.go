package domain

import "fmt"

// ErrNotFound is returned when a property is absent and cannot be resolved,
// or when a named object is unknown.
type ErrNotFound struct {
	Object string
	Key    string
}

func (e ErrNotFound) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("%s not found", e.Key)
	}
	return fmt.Sprintf("%s not found on %s", e.Key, e.Object)
}

// ErrDimensionMismatch is returned when an array length disagrees with the
// element count of its domain.
type ErrDimensionMismatch struct {
	Object string
	Key    string
	Want   int
	Got    int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("%s on %s: expected %d values, got %d", e.Key, e.Object, e.Want, e.Got)
}

// ErrOwnershipConflict is returned when a write targets a property that
// another object already supplies for an overlapping element.
type ErrOwnershipConflict struct {
	Object string
	Key    string
	Owner  string
}

func (e ErrOwnershipConflict) Error() string {
	return fmt.Sprintf("%s cannot be written on %s: already defined by %s", e.Key, e.Object, e.Owner)
}

// ErrMissingInput is returned when a model cannot run because one of its
// required inputs is absent.
type ErrMissingInput struct {
	Object string
	Target string
	Input  string
}

func (e ErrMissingInput) Error() string {
	return fmt.Sprintf("regenerate %s on %s: missing input %s", e.Target, e.Object, e.Input)
}

// ErrDuplicateMembership is returned when attaching an object that is
// already attached, or registering a name that is already taken.
type ErrDuplicateMembership struct {
	Parent string
	Member string
}

func (e ErrDuplicateMembership) Error() string {
	return fmt.Sprintf("%s is already attached to %s", e.Member, e.Parent)
}

// ErrInvalidArgument is returned when a call or model binding carries a
// malformed argument.
type ErrInvalidArgument struct {
	Argument string
	Reason   string
}

func (e ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Argument, e.Reason)
}
