// Package service holds the coordinator rules: capacity bounds, lazy
// expiry, sentinel translation, and post-commit event emission. Atomicity
// itself lives in the store; the service never sees partial state.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cabshare/internal/catalog"
	"cabshare/internal/feed"
	"cabshare/internal/group/metrics"
	"cabshare/internal/group/models"
	"cabshare/internal/group/store"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/platform/sentinel"
	"cabshare/pkg/requestcontext"
)

// DefaultCapacity seats a full cab when the creator does not choose.
const DefaultCapacity = 4

// Catalog resolves schedule metadata for a train number.
type Catalog interface {
	FindTrain(ctx context.Context, trainNumber string) (*catalog.Train, error)
}

// CapacityBounds limit the configurable group size.
type CapacityBounds struct {
	Min int
	Max int
}

// CreateGroupRequest carries the raw create fields; validation happens here
// so every transport gets the same rejections.
type CreateGroupRequest struct {
	TrainNumber  string
	TravelDate   string
	Direction    string
	Capacity     int
	MeetingPoint string
	CreatorName  string
	CreatorPhone string
}

// Service coordinates groups over the authoritative store.
//
// locks serializes the commit-to-publish handoff per group: the store makes
// each mutation atomic on its own, but without the lock two concurrent joins
// could commit in one order and reach the feed in the other. Holding the
// group's lock from the store call through Publish keeps publish order equal
// to commit order on every group topic.
type Service struct {
	logger  *slog.Logger
	store   store.Store
	catalog Catalog
	feed    feed.Publisher
	metrics *metrics.Metrics
	bounds  CapacityBounds
	locks   *keyedlock.Map
}

// New constructs the group service. locks must be shared with every other
// service that publishes events for the same groups.
func New(
	st store.Store,
	cat Catalog,
	publisher feed.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	bounds CapacityBounds,
	locks *keyedlock.Map) *Service {
	return &Service{
		logger:  logger,
		store:   st,
		catalog: cat,
		feed:    publisher,
		metrics: m,
		bounds:  bounds,
		locks:   locks,
	}
}

type groupCreatedPayload struct {
	Capacity      int    `json:"capacity"`
	MeetingPoint  string `json:"meeting_point,omitempty"`
	DepartureTime string `json:"departure_time"`
	CreatedBy     string `json:"created_by"`
}

type memberJoinedPayload struct {
	MemberID    domain.MemberID `json:"member_id"`
	Name        string          `json:"name"`
	MemberCount int             `json:"member_count"`
	Capacity    int             `json:"capacity"`
}

type memberLeftPayload struct {
	MemberID    domain.MemberID `json:"member_id"`
	MemberCount int             `json:"member_count"`
}

type groupFullPayload struct {
	MemberCount int `json:"member_count"`
}

// CreateGroup atomically creates a group with its creator seated as the
// first member. The creator's membership counts against the one-per-
// departure rule, so someone already booked on the departure cannot create
// a second group for it.
func (s *Service) CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	key, err := domain.NewDepartureKey(req.TrainNumber, req.TravelDate, req.Direction)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid departure")
	}
	identity, err := domain.NewIdentity(req.CreatorName, req.CreatorPhone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid creator identity")
	}

	now := requestcontext.Now(ctx)
	if key.TravelDate.Before(domain.DateOf(now)) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "travel date has already passed")
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < s.bounds.Min || capacity > s.bounds.Max {
		return nil, dErrors.Newf(dErrors.CodeInvalidCapacity,
			"capacity must be between %d and %d", s.bounds.Min, s.bounds.Max)
	}

	train, err := s.catalog.FindTrain(ctx, key.TrainNumber)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		ID:            domain.NewGroupID(),
		TrainNumber:   key.TrainNumber,
		TravelDate:    key.TravelDate,
		Direction:     key.Direction,
		DepartureTime: train.DepartureTime,
		Capacity:      capacity,
		MeetingPoint:  strings.TrimSpace(req.MeetingPoint),
		CreatedBy:     identity,
		CreatedAt:     now,
	}
	creator := &models.Member{
		ID:       domain.NewMemberID(),
		GroupID:  group.ID,
		Identity: identity,
		JoinedAt: now,
	}

	s.locks.Lock(group.ID.String())
	defer s.locks.Unlock(group.ID.String())

	if err := s.store.CreateGroup(ctx, group, creator); err != nil {
		return nil, s.translateCreate(err)
	}
	group.MemberCount = 1

	s.metrics.IncGroupsCreated()
	s.metrics.IncMembersJoined()
	s.logger.InfoContext(ctx, "group created",
		slog.String("group_id", group.ID.String()),
		slog.String("departure", key.String()),
		slog.Int("capacity", capacity))

	s.feed.Publish(ctx, feed.NewEvent(feed.KindGroupCreated, group.ID, key, now, groupCreatedPayload{
		Capacity:      capacity,
		MeetingPoint:  group.MeetingPoint,
		DepartureTime: group.DepartureTime,
		CreatedBy:     identity.Name,
	}))
	return group, nil
}

// JoinGroup seats a traveler if the group has an open slot, is not expired,
// and the traveler holds no other membership for the departure. The store
// decides all three atomically; losers of the last-slot race get group_full.
func (s *Service) JoinGroup(ctx context.Context, groupID domain.GroupID, name, phone string) (*models.Member, error) {
	start := time.Now()

	identity, err := domain.NewIdentity(name, phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid member identity")
	}

	now := requestcontext.Now(ctx)
	member := &models.Member{
		ID:       domain.NewMemberID(),
		GroupID:  groupID,
		Identity: identity,
		JoinedAt: now,
	}

	s.locks.Lock(groupID.String())
	defer s.locks.Unlock(groupID.String())

	group, err := s.store.AddMember(ctx, groupID, member)
	if err != nil {
		return nil, s.translateJoin(ctx, err, groupID)
	}

	s.metrics.IncMembersJoined()
	s.metrics.ObserveJoinDuration(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "member joined",
		slog.String("group_id", groupID.String()),
		slog.Int("member_count", group.MemberCount),
		slog.Int("capacity", group.Capacity))

	key := group.DepartureKey()
	s.feed.Publish(ctx, feed.NewEvent(feed.KindMemberJoined, groupID, key, now, memberJoinedPayload{
		MemberID:    member.ID,
		Name:        identity.Name,
		MemberCount: group.MemberCount,
		Capacity:    group.Capacity,
	}))
	if group.MemberCount == group.Capacity {
		s.feed.Publish(ctx, feed.NewEvent(feed.KindGroupBecameFull, groupID, key, now, groupFullPayload{
			MemberCount: group.MemberCount,
		}))
	}
	return member, nil
}

// LeaveGroup unseats a member. The freed slot reopens the group and the
// traveler may book again on the departure.
func (s *Service) LeaveGroup(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) error {
	s.locks.Lock(groupID.String())
	defer s.locks.Unlock(groupID.String())

	group, err := s.store.RemoveMember(ctx, groupID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "group or member not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "leave failed")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "leave failed")
		}
	}

	s.metrics.IncMembersLeft()
	now := requestcontext.Now(ctx)
	s.logger.InfoContext(ctx, "member left",
		slog.String("group_id", groupID.String()),
		slog.Int("member_count", group.MemberCount))

	s.feed.Publish(ctx, feed.NewEvent(feed.KindMemberLeft, groupID, group.DepartureKey(), now, memberLeftPayload{
		MemberID:    memberID,
		MemberCount: group.MemberCount,
	}))
	return nil
}

// ListParams narrow a listing to one departure. All three fields are given
// together or not at all.
type ListParams struct {
	TrainNumber string
	TravelDate  string
	Direction   string
}

func (p ListParams) empty() bool {
	return p.TrainNumber == "" && p.TravelDate == "" && p.Direction == ""
}

// ListGroups returns non-expired groups ordered by travel date then
// departure time. Expired groups leave the listing on the request clock
// without waiting for any sweep.
func (s *Service) ListGroups(ctx context.Context, params ListParams) ([]*models.Group, error) {
	filter := store.Filter{AsOf: domain.DateOf(requestcontext.Now(ctx))}
	if !params.empty() {
		key, err := domain.NewDepartureKey(params.TrainNumber, params.TravelDate, params.Direction)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid departure filter")
		}
		filter.Departure = &key
	}

	groups, err := s.store.ListGroups(ctx, filter)
	if err != nil {
		return nil, s.translateRead(err)
	}
	return groups, nil
}

// GetGroup returns one group regardless of lifecycle state.
func (s *Service) GetGroup(ctx context.Context, groupID domain.GroupID) (*models.Group, error) {
	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, s.translateRead(err)
	}
	return group, nil
}

// ListMembers returns a group's seated members in join order.
func (s *Service) ListMembers(ctx context.Context, groupID domain.GroupID) ([]*models.Member, error) {
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, s.translateRead(err)
	}
	return members, nil
}

func (s *Service) translateCreate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyBooked):
		s.metrics.IncDuplicateBooking()
		return dErrors.Wrap(err, dErrors.CodeDuplicateBooking,
			"creator already holds a membership for this departure")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "create failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "create failed")
	}
}

func (s *Service) translateJoin(ctx context.Context, err error, groupID domain.GroupID) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "group not found")
	case errors.Is(err, sentinel.ErrNotJoinable):
		return dErrors.New(dErrors.CodeNotJoinable, "group departure has passed")
	case errors.Is(err, sentinel.ErrCapacityReached):
		s.metrics.IncGroupFull()
		s.logger.InfoContext(ctx, "join refused, group full",
			slog.String("group_id", groupID.String()))
		return dErrors.Wrap(err, dErrors.CodeGroupFull, "group has no open slot")
	case errors.Is(err, sentinel.ErrAlreadyBooked):
		s.metrics.IncDuplicateBooking()
		return dErrors.Wrap(err, dErrors.CodeDuplicateBooking,
			"traveler already holds a membership for this departure")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "join failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "join failed")
	}
}

func (s *Service) translateRead(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "group not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "read failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "read failed")
	}
}
