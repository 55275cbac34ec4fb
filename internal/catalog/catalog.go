// Package catalog is the departure-catalog collaborator: given a train
// number it returns schedule metadata. It is a pure read surface with no
// side effects on the group coordinator.
package catalog

import "context"

// Train is the schedule metadata for one carrier.
type Train struct {
	TrainNumber        string
	TrainName          string
	DepartureTime      string // "HH:MM", station-local
	DestinationStation string
}

// Store is interface-driven so the seeded in-memory catalog and the
// postgres-backed one are interchangeable.
type Store interface {
	FindByNumber(ctx context.Context, trainNumber string) (*Train, error)
}
