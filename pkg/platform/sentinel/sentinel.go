package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored resources, not validation
// failures:
// - ErrNotFound: entity does not exist in the store
// - ErrAlreadyBooked: the phone already holds a membership for the departure
// - ErrCapacityReached: the group has no open slot
// - ErrNotJoinable: the group is expired and accepts no further members
// - ErrUnavailable: storage temporarily unavailable; the aborted operation
//   left no partial state, so the caller may retry it whole
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyBooked   = errors.New("already booked")
	ErrCapacityReached = errors.New("capacity reached")
	ErrNotJoinable     = errors.New("not joinable")
	ErrUnavailable     = errors.New("unavailable")
)
