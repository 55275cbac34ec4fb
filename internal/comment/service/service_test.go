package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	commentstore "cabshare/internal/comment/store"
	"cabshare/internal/feed"
	groupmodels "cabshare/internal/group/models"
	groupstore "cabshare/internal/group/store"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/requestcontext"
)

type capturingFeed struct {
	events []feed.Event
}

func (f *capturingFeed) Publish(_ context.Context, event feed.Event) {
	f.events = append(f.events, event)
}

type CommentSuite struct {
	suite.Suite
	groups *groupstore.InMemory
	feed   *capturingFeed
	svc    *Service
	ctx    context.Context
	group  *groupmodels.Group
}

func TestCommentSuite(t *testing.T) {
	suite.Run(t, new(CommentSuite))
}

func (s *CommentSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.groups = groupstore.NewInMemory()
	s.feed = &capturingFeed{}
	s.svc = New(commentstore.NewInMemory(s.groups), s.groups, s.feed, logger, keyedlock.New())

	now := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)

	identity, err := domain.NewIdentity("Asha", "9876543210")
	s.Require().NoError(err)
	date, err := domain.ParseDate("2026-09-14")
	s.Require().NoError(err)
	s.group = &groupmodels.Group{
		ID:            domain.NewGroupID(),
		TrainNumber:   "12640",
		TravelDate:    date,
		Direction:     domain.DirectionToStation,
		DepartureTime: "07:50",
		Capacity:      4,
		CreatedBy:     identity,
		CreatedAt:     now,
	}
	creator := &groupmodels.Member{
		ID:       domain.NewMemberID(),
		GroupID:  s.group.ID,
		Identity: identity,
		JoinedAt: now,
	}
	s.Require().NoError(s.groups.CreateGroup(s.ctx, s.group, creator))
}

func (s *CommentSuite) TestPostAppendsAndEmits() {
	comment, err := s.svc.Post(s.ctx, s.group.ID, "Asha", "9876543210", "meet at the main gate by 7")
	s.Require().NoError(err)
	s.Equal("meet at the main gate by 7", comment.Text)

	s.Require().Len(s.feed.events, 1)
	s.Equal(feed.KindCommentPosted, s.feed.events[0].Kind)
	s.Equal(s.group.ID, s.feed.events[0].GroupID)
	s.Equal(s.group.DepartureKey(), s.feed.events[0].Departure)
}

func (s *CommentSuite) TestPostRejectsMalformedInput() {
	_, err := s.svc.Post(s.ctx, s.group.ID, "Asha", "9876543210", "   ")
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "blank text")

	_, err = s.svc.Post(s.ctx, s.group.ID, "Asha", "12345", "hello")
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "bad phone")

	long := strings.Repeat("x", 501)
	_, err = s.svc.Post(s.ctx, s.group.ID, "Asha", "9876543210", long)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "oversized text")

	s.Empty(s.feed.events)
}

func (s *CommentSuite) TestPostUnknownGroup() {
	_, err := s.svc.Post(s.ctx, domain.NewGroupID(), "Asha", "9876543210", "hello")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.Empty(s.feed.events)
}

func (s *CommentSuite) TestListOrdersOldestFirst() {
	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(i)*time.Minute))
		_, err := s.svc.Post(ctx, s.group.ID, "Asha", "9876543210", text)
		s.Require().NoError(err)
	}

	comments, err := s.svc.List(s.ctx, s.group.ID)
	s.Require().NoError(err)
	s.Require().Len(comments, 3)
	s.Equal("first", comments[0].Text)
	s.Equal("third", comments[2].Text)
}

func (s *CommentSuite) TestListUnknownGroup() {
	_, err := s.svc.List(s.ctx, domain.NewGroupID())
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
