// Package store is the authoritative home of groups and members. The store
// owns atomicity: every mutation runs its capacity check, its membership
// guard check, and its write as one serializable unit, so no interleaving of
// concurrent calls can over-admit a group or double-book a traveler.
//
// Stores return pkg/platform/sentinel errors; the service translates them.
package store

import (
	"context"

	"cabshare/internal/group/models"
	"cabshare/pkg/domain"
)

// Filter selects groups for listing. AsOf excludes groups whose travel date
// is strictly earlier; expired groups stay in storage, they only leave the
// listing. Until excludes groups whose travel date is on or after it, which
// the lifecycle sweep uses to select only already-expired groups.
type Filter struct {
	Departure *domain.DepartureKey
	AsOf      domain.Date
	Until     domain.Date
}

// Store is the authoritative state interface.
//
// CreateGroup atomically inserts the group and seats the creator as its
// first member; sentinel.ErrAlreadyBooked if the creator already holds a
// membership for the departure, with nothing committed.
//
// AddMember atomically re-reads the member count, enforces capacity
// (sentinel.ErrCapacityReached), enforces the one-membership-per-departure
// guard (sentinel.ErrAlreadyBooked), rejects expired groups
// (sentinel.ErrNotJoinable) and unknown groups (sentinel.ErrNotFound), then
// seats the member. The returned group reflects the post-insert count.
//
// RemoveMember unseats a member, freeing the slot and the uniqueness claim.
type Store interface {
	CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error
	AddMember(ctx context.Context, groupID domain.GroupID, member *models.Member) (*models.Group, error)
	RemoveMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (*models.Group, error)
	FindGroup(ctx context.Context, groupID domain.GroupID) (*models.Group, error)
	ListGroups(ctx context.Context, filter Filter) ([]*models.Group, error)
	ListMembers(ctx context.Context, groupID domain.GroupID) ([]*models.Member, error)
}
