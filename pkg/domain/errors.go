package domain

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError is returned when a referenced collection, feature, track, or
// series does not exist. It is surfaced to the caller and never retried.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ConstraintError is returned when creating an entity whose required parent
// is missing or whose identifier collides with an existing one.
type ConstraintError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

// TemporalOrderError is returned when an appended timestamp is not strictly
// greater than the track's or series' last timestamp.
type TemporalOrderError struct {
	Entity    EntityType
	ID        string
	Last      time.Time
	Attempted time.Time
}

func (e TemporalOrderError) Error() string {
	return fmt.Sprintf("%s %q: timestamp %s not after last %s",
		e.Entity, e.ID, e.Attempted.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

// TypeMismatchError is returned when an appended value disagrees with the
// series' declared value type.
type TypeMismatchError struct {
	Series   string
	Declared ValueType
	Got      ValueType
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("series %q: value type %s does not match declared %s", e.Series, e.Got, e.Declared)
}

// CRSMismatchError is returned when a sample's coordinate dimensionality
// disagrees with the dimensionality fixed by the track's first sample.
type CRSMismatchError struct {
	TrackID string
	Want    int
	Got     int
}

func (e CRSMismatchError) Error() string {
	return fmt.Sprintf("track %q: sample has %d coordinates, track fixed at %d", e.TrackID, e.Got, e.Want)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsTemporalOrder reports whether err is (or wraps) a TemporalOrderError.
func IsTemporalOrder(err error) bool {
	var to TemporalOrderError
	return errors.As(err, &to)
}

// IsConstraint reports whether err is (or wraps) a ConstraintError.
func IsConstraint(err error) bool {
	var ce ConstraintError
	return errors.As(err, &ce)
}
