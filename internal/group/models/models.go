// Package models holds the group aggregate and its derived lifecycle.
package models

import (
	"time"

	"cabshare/pkg/domain"
)

// GroupStatus is the derived lifecycle state of a group. It is never stored:
// StatusAt recomputes it from member count, capacity, and travel date so
// stored state can never drift from the truth.
type GroupStatus string

const (
	StatusActive  GroupStatus = "active"
	StatusFull    GroupStatus = "full"
	StatusExpired GroupStatus = "expired"
)

// Group is one capacity-bounded cab group tied to a departure.
type Group struct {
	ID            domain.GroupID
	TrainNumber   string
	TravelDate    domain.Date
	Direction     domain.Direction
	DepartureTime string
	Capacity      int
	MeetingPoint  string
	CreatedBy     domain.Identity
	CreatedAt     time.Time

	// MemberCount is the number of seated members at read time. The store
	// fills it from the members it holds; it is never written independently.
	MemberCount int
}

// DepartureKey returns the grouping key this group belongs to.
func (g *Group) DepartureKey() domain.DepartureKey {
	return domain.DepartureKey{
		TrainNumber: g.TrainNumber,
		TravelDate:  g.TravelDate,
		Direction:   g.Direction,
	}
}

// StatusAt derives the lifecycle state as observed at now. Expiry wins over
// fullness: a full group whose travel date has passed is expired.
func (g *Group) StatusAt(now time.Time) GroupStatus {
	return StatusOf(g.MemberCount, g.Capacity, g.TravelDate, now)
}

// StatusOf is the pure derivation: expired iff the travel date is strictly
// before the calendar date of now; else full iff memberCount has reached
// capacity; else active.
func StatusOf(memberCount, capacity int, travelDate domain.Date, now time.Time) GroupStatus {
	if travelDate.Before(domain.DateOf(now)) {
		return StatusExpired
	}
	if memberCount >= capacity {
		return StatusFull
	}
	return StatusActive
}

// Member is one traveler's commitment to a group.
type Member struct {
	ID       domain.MemberID
	GroupID  domain.GroupID
	Identity domain.Identity
	JoinedAt time.Time
}
