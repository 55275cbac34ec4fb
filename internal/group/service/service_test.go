package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cabshare/internal/catalog"
	"cabshare/internal/feed"
	"cabshare/internal/group/store"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/requestcontext"
)

// capturingFeed records published events in order.
type capturingFeed struct {
	mu     sync.Mutex
	events []feed.Event
}

func (f *capturingFeed) Publish(_ context.Context, event feed.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *capturingFeed) kinds() []feed.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]feed.Kind, len(f.events))
	for i, e := range f.events {
		kinds[i] = e.Kind
	}
	return kinds
}

type ServiceSuite struct {
	suite.Suite
	store *store.InMemory
	feed  *capturingFeed
	svc   *Service
	now   time.Time
	ctx   context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.feed = &capturingFeed{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.NewService(catalog.NewInMemory(catalog.DefaultSeed()...))
	s.svc = New(s.store, cat, s.feed, logger, nil, CapacityBounds{Min: 2, Max: 6}, keyedlock.New())
	s.now = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

// at shifts the request clock, for expiry scenarios.
func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) createRequest() CreateGroupRequest {
	return CreateGroupRequest{
		TrainNumber:  "12640",
		TravelDate:   "2026-09-14",
		Direction:    "to_station",
		Capacity:     3,
		MeetingPoint: "Main Gate",
		CreatorName:  "Asha",
		CreatorPhone: "9876543210",
	}
}

func (s *ServiceSuite) TestCreateGroupSeatsCreator() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	s.Equal(1, group.MemberCount)
	s.Equal("07:50", group.DepartureTime)
	s.Equal("Asha", group.CreatedBy.Name)

	members, err := s.svc.ListMembers(s.ctx, group.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal("9876543210", members[0].Identity.Phone)

	s.Equal([]feed.Kind{feed.KindGroupCreated}, s.feed.kinds())
	s.Equal(group.ID, s.feed.events[0].GroupID)
	s.Equal(group.DepartureKey(), s.feed.events[0].Departure)
}

func (s *ServiceSuite) TestCreateGroupDefaultsCapacity() {
	req := s.createRequest()
	req.Capacity = 0
	group, err := s.svc.CreateGroup(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(DefaultCapacity, group.Capacity)
}

func (s *ServiceSuite) TestCreateGroupRejectsCapacityOutOfBounds() {
	for _, capacity := range []int{1, 7, -2} {
		req := s.createRequest()
		req.Capacity = capacity
		_, err := s.svc.CreateGroup(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeInvalidCapacity), "capacity %d", capacity)
	}
	s.Empty(s.feed.events)
}

func (s *ServiceSuite) TestCreateGroupRejectsMalformedInput() {
	cases := map[string]CreateGroupRequest{}

	badPhone := s.createRequest()
	badPhone.CreatorPhone = "12345"
	cases["short phone"] = badPhone

	badDate := s.createRequest()
	badDate.TravelDate = "14-09-2026"
	cases["wrong date layout"] = badDate

	badDirection := s.createRequest()
	badDirection.Direction = "sideways"
	cases["unknown direction"] = badDirection

	noName := s.createRequest()
	noName.CreatorName = "   "
	cases["blank name"] = noName

	for name, req := range cases {
		_, err := s.svc.CreateGroup(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput), name)
	}
	s.Empty(s.feed.events)
}

func (s *ServiceSuite) TestCreateGroupRejectsPastTravelDate() {
	req := s.createRequest()
	req.TravelDate = "2026-08-31"
	_, err := s.svc.CreateGroup(s.ctx, req)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestCreateGroupRejectsUnknownTrain() {
	req := s.createRequest()
	req.TrainNumber = "99999"
	_, err := s.svc.CreateGroup(s.ctx, req)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.Empty(s.feed.events)
}

func (s *ServiceSuite) TestCreateGroupRefusesSecondGroupOnSameDeparture() {
	_, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	_, err = s.svc.CreateGroup(s.ctx, s.createRequest())
	s.True(dErrors.Is(err, dErrors.CodeDuplicateBooking))

	// The failed create committed nothing.
	groups, listErr := s.svc.ListGroups(s.ctx, ListParams{})
	s.Require().NoError(listErr)
	s.Len(groups, 1)
	s.Equal([]feed.Kind{feed.KindGroupCreated}, s.feed.kinds())
}

func (s *ServiceSuite) TestJoinGroupEmitsJoinedThenFull() {
	req := s.createRequest()
	req.Capacity = 2
	group, err := s.svc.CreateGroup(s.ctx, req)
	s.Require().NoError(err)

	member, err := s.svc.JoinGroup(s.ctx, group.ID, "Bala", "9000000001")
	s.Require().NoError(err)
	s.Equal(group.ID, member.GroupID)

	s.Equal([]feed.Kind{
		feed.KindGroupCreated,
		feed.KindMemberJoined,
		feed.KindGroupBecameFull,
	}, s.feed.kinds())
}

func (s *ServiceSuite) TestJoinGroupBelowCapacityEmitsNoFullEvent() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	_, err = s.svc.JoinGroup(s.ctx, group.ID, "Bala", "9000000001")
	s.Require().NoError(err)

	s.Equal([]feed.Kind{feed.KindGroupCreated, feed.KindMemberJoined}, s.feed.kinds())
}

func (s *ServiceSuite) TestJoinGroupRejectsDuplicateTraveler() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	// Same traveler, same group.
	_, err = s.svc.JoinGroup(s.ctx, group.ID, "Asha", "9876543210")
	s.True(dErrors.Is(err, dErrors.CodeDuplicateBooking))

	// Same traveler, sibling group on the same departure.
	sibling := s.createRequest()
	sibling.CreatorName = "Chitra"
	sibling.CreatorPhone = "9000000002"
	other, err := s.svc.CreateGroup(s.ctx, sibling)
	s.Require().NoError(err)

	_, err = s.svc.JoinGroup(s.ctx, other.ID, "Asha", "9876543210")
	s.True(dErrors.Is(err, dErrors.CodeDuplicateBooking))
}

func (s *ServiceSuite) TestJoinGroupFull() {
	req := s.createRequest()
	req.Capacity = 2
	group, err := s.svc.CreateGroup(s.ctx, req)
	s.Require().NoError(err)

	_, err = s.svc.JoinGroup(s.ctx, group.ID, "Bala", "9000000001")
	s.Require().NoError(err)

	before := len(s.feed.events)
	_, err = s.svc.JoinGroup(s.ctx, group.ID, "Chitra", "9000000002")
	s.True(dErrors.Is(err, dErrors.CodeGroupFull))
	s.Len(s.feed.events, before, "a refused join publishes nothing")
}

func (s *ServiceSuite) TestJoinGroupUnknown() {
	_, err := s.svc.JoinGroup(s.ctx, domain.NewGroupID(), "Bala", "9000000001")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestJoinGroupExpired() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	dayAfter := s.at(time.Date(2026, time.September, 15, 8, 0, 0, 0, time.UTC))
	before := len(s.feed.events)
	_, err = s.svc.JoinGroup(dayAfter, group.ID, "Bala", "9000000001")
	s.True(dErrors.Is(err, dErrors.CodeNotJoinable))
	s.Len(s.feed.events, before)
}

func (s *ServiceSuite) TestConcurrentJoinsPublishInCommitOrder() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.NewService(catalog.NewInMemory(catalog.DefaultSeed()...))
	svc := New(s.store, cat, s.feed, logger, nil, CapacityBounds{Min: 2, Max: 60}, keyedlock.New())

	req := s.createRequest()
	req.Capacity = 50
	group, err := svc.CreateGroup(s.ctx, req)
	s.Require().NoError(err)

	const joiners = 49
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(i int) {
			defer wg.Done()
			_, joinErr := svc.JoinGroup(s.ctx, group.ID, "Rider", fmt.Sprintf("90000%05d", i))
			s.NoError(joinErr)
		}(i)
	}
	wg.Wait()

	// The member counts the store stamped at commit time must reach the
	// feed in that same order: 2 through 50, then the full announcement.
	var counts []int
	for _, e := range s.feed.events {
		if e.Kind != feed.KindMemberJoined {
			continue
		}
		var payload struct {
			MemberCount int `json:"member_count"`
		}
		s.Require().NoError(json.Unmarshal(e.Payload, &payload))
		counts = append(counts, payload.MemberCount)
	}
	s.Require().Len(counts, joiners)
	for i, count := range counts {
		s.Equal(i+2, count)
	}
	s.Equal(feed.KindGroupBecameFull, s.feed.events[len(s.feed.events)-1].Kind)
}

func (s *ServiceSuite) TestLeaveGroupFreesSlotAndUniqueness() {
	req := s.createRequest()
	req.Capacity = 2
	group, err := s.svc.CreateGroup(s.ctx, req)
	s.Require().NoError(err)
	member, err := s.svc.JoinGroup(s.ctx, group.ID, "Bala", "9000000001")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.LeaveGroup(s.ctx, group.ID, member.ID))
	s.Equal(feed.KindMemberLeft, s.feed.events[len(s.feed.events)-1].Kind)

	// The slot reopened and the traveler may book the departure again.
	_, err = s.svc.JoinGroup(s.ctx, group.ID, "Bala", "9000000001")
	s.NoError(err)
}

func (s *ServiceSuite) TestLeaveGroupUnknownMember() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	err = s.svc.LeaveGroup(s.ctx, group.ID, domain.NewMemberID())
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListGroupsDropsExpiredOnRequestClock() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	groups, err := s.svc.ListGroups(s.ctx, ListParams{})
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(group.ID, groups[0].ID)

	dayAfter := s.at(time.Date(2026, time.September, 15, 0, 30, 0, 0, time.UTC))
	groups, err = s.svc.ListGroups(dayAfter, ListParams{})
	s.Require().NoError(err)
	s.Empty(groups, "expired groups leave the listing without any sweep")
}

func (s *ServiceSuite) TestListGroupsByDeparture() {
	_, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	other := s.createRequest()
	other.Direction = "to_college"
	other.CreatorName = "Bala"
	other.CreatorPhone = "9000000001"
	_, err = s.svc.CreateGroup(s.ctx, other)
	s.Require().NoError(err)

	groups, err := s.svc.ListGroups(s.ctx, ListParams{
		TrainNumber: "12640", TravelDate: "2026-09-14", Direction: "to_station",
	})
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(domain.DirectionToStation, groups[0].Direction)

	_, err = s.svc.ListGroups(s.ctx, ListParams{TrainNumber: "12640"})
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "partial departure filter")
}

func (s *ServiceSuite) TestGetGroupReturnsExpiredToo() {
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	dayAfter := s.at(time.Date(2026, time.September, 20, 0, 0, 0, 0, time.UTC))
	got, err := s.svc.GetGroup(dayAfter, group.ID)
	s.Require().NoError(err)
	s.Equal(group.ID, got.ID)
}

func (s *ServiceSuite) TestSweeperAnnouncesExpiryOnce() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	group, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	sweeper := NewSweeper(s.store, s.feed, logger, nil, time.Minute)

	// Before the travel date nothing is announced.
	sweeper.sweep(context.Background(), s.now)
	s.Equal([]feed.Kind{feed.KindGroupCreated}, s.feed.kinds())

	after := time.Date(2026, time.September, 15, 6, 0, 0, 0, time.UTC)
	sweeper.sweep(context.Background(), after)
	s.Equal([]feed.Kind{feed.KindGroupCreated, feed.KindGroupExpired}, s.feed.kinds())
	s.Equal(group.ID, s.feed.events[1].GroupID)

	// A second pass does not repeat the announcement.
	sweeper.sweep(context.Background(), after.Add(time.Minute))
	s.Len(s.feed.events, 2)
}

func (s *ServiceSuite) TestSweeperIgnoresLongExpiredGroups() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := s.svc.CreateGroup(s.ctx, s.createRequest())
	s.Require().NoError(err)

	// A fresh sweeper far past the lookback window does not dredge up
	// groups that expired long ago.
	sweeper := NewSweeper(s.store, s.feed, logger, nil, time.Minute)
	sweeper.sweep(context.Background(), time.Date(2026, time.October, 10, 6, 0, 0, 0, time.UTC))
	s.Equal([]feed.Kind{feed.KindGroupCreated}, s.feed.kinds())
}
