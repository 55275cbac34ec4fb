package store

import (
	"cabshare/pkg/domain"
)

// membershipGuard is the in-memory membership index: one entry per seated
// (departure, phone) pair. It is only touched while the owning store's write
// lock is held, so a guard check and the insert it guards are a single
// atomic unit. Checking first and inserting later without the lock is the
// exact race this type exists to prevent.
//
// The postgres store has no counterpart type: its guard is the partial
// unique index on (train_number, travel_date, direction, phone_number)
// WHERE left_at IS NULL, enforced inside the mutation's transaction.
type membershipGuard struct {
	seated map[string]map[string]domain.MemberID // departure key -> phone -> member
}

func newMembershipGuard() *membershipGuard {
	return &membershipGuard{seated: make(map[string]map[string]domain.MemberID)}
}

// check reports whether the phone already holds a membership for the
// departure.
func (g *membershipGuard) check(key domain.DepartureKey, phone string) bool {
	_, booked := g.seated[key.String()][phone]
	return booked
}

// reserve records a seated membership. Callers must have checked first,
// under the same lock.
func (g *membershipGuard) reserve(key domain.DepartureKey, phone string, id domain.MemberID) {
	phones, ok := g.seated[key.String()]
	if !ok {
		phones = make(map[string]domain.MemberID)
		g.seated[key.String()] = phones
	}
	phones[phone] = id
}

// release frees a membership claim when a member leaves.
func (g *membershipGuard) release(key domain.DepartureKey, phone string) {
	phones := g.seated[key.String()]
	delete(phones, phone)
	if len(phones) == 0 {
		delete(g.seated, key.String())
	}
}
