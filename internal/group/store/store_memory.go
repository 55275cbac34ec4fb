package store

import (
	"context"
	"sort"
	"sync"

	"cabshare/internal/group/models"
	"cabshare/pkg/domain"
	"cabshare/pkg/platform/sentinel"
	"cabshare/pkg/requestcontext"
)

// InMemory keeps groups and members in maps, guarded by one mutex. Holding
// the write lock across check and insert gives every mutation the same
// serializable semantics the postgres store gets from its transaction and
// unique index.
type InMemory struct {
	mu      sync.RWMutex
	groups  map[domain.GroupID]*models.Group
	members map[domain.GroupID][]*models.Member
	guard   *membershipGuard
	seq     int64 // creation order tiebreak for listings
	order   map[domain.GroupID]int64
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		groups:  make(map[domain.GroupID]*models.Group),
		members: make(map[domain.GroupID][]*models.Member),
		guard:   newMembershipGuard(),
		order:   make(map[domain.GroupID]int64),
	}
}

func (s *InMemory) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := group.DepartureKey()
	if s.guard.check(key, creator.Identity.Phone) {
		return sentinel.ErrAlreadyBooked
	}

	g := *group
	g.MemberCount = 1
	s.groups[g.ID] = &g
	s.seq++
	s.order[g.ID] = s.seq

	m := *creator
	m.GroupID = g.ID
	s.members[g.ID] = []*models.Member{&m}
	s.guard.reserve(key, m.Identity.Phone, m.ID)
	return nil
}

func (s *InMemory) AddMember(ctx context.Context, groupID domain.GroupID, member *models.Member) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if g.TravelDate.Before(domain.DateOf(now)) {
		return nil, sentinel.ErrNotJoinable
	}
	if g.MemberCount >= g.Capacity {
		return nil, sentinel.ErrCapacityReached
	}
	key := g.DepartureKey()
	if s.guard.check(key, member.Identity.Phone) {
		return nil, sentinel.ErrAlreadyBooked
	}

	m := *member
	m.GroupID = groupID
	s.members[groupID] = append(s.members[groupID], &m)
	g.MemberCount++
	s.guard.reserve(key, m.Identity.Phone, m.ID)

	snapshot := *g
	return &snapshot, nil
}

func (s *InMemory) RemoveMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	members := s.members[groupID]
	for i, m := range members {
		if m.ID == memberID {
			s.members[groupID] = append(members[:i:i], members[i+1:]...)
			g.MemberCount--
			s.guard.release(g.DepartureKey(), m.Identity.Phone)
			snapshot := *g
			return &snapshot, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindGroup(_ context.Context, groupID domain.GroupID) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.groups[groupID]; ok {
		snapshot := *g
		return &snapshot, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListGroups(_ context.Context, filter Filter) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*models.Group, 0)
	for _, g := range s.groups {
		if filter.Departure != nil && g.DepartureKey() != *filter.Departure {
			continue
		}
		if !filter.AsOf.IsZero() && g.TravelDate.Before(filter.AsOf) {
			continue
		}
		if !filter.Until.IsZero() && !g.TravelDate.Before(filter.Until) {
			continue
		}
		snapshot := *g
		groups = append(groups, &snapshot)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if !a.TravelDate.Equal(b.TravelDate) {
			return a.TravelDate.Before(b.TravelDate)
		}
		if a.DepartureTime != b.DepartureTime {
			return a.DepartureTime < b.DepartureTime
		}
		return s.order[a.ID] < s.order[b.ID]
	})
	return groups, nil
}

func (s *InMemory) ListMembers(_ context.Context, groupID domain.GroupID) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	members := s.members[groupID]
	out := make([]*models.Member, 0, len(members))
	for _, m := range members {
		snapshot := *m
		out = append(out, &snapshot)
	}
	return out, nil
}
