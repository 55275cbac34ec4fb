// Package service validates and appends comments, and announces each
// append on the feed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cabshare/internal/comment/models"
	"cabshare/internal/comment/store"
	"cabshare/internal/feed"
	groupmodels "cabshare/internal/group/models"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/platform/sentinel"
	"cabshare/pkg/requestcontext"
)

// maxCommentLength bounds one message on the board.
const maxCommentLength = 500

// GroupFinder resolves the group a comment lands on, for the departure
// scope of the emitted event.
type GroupFinder interface {
	FindGroup(ctx context.Context, groupID domain.GroupID) (*groupmodels.Group, error)
}

// Service is the comment log. locks is the per-group lock shared with the
// group service; holding it from Append through Publish keeps this group's
// feed in commit order even when comments and joins land concurrently.
type Service struct {
	logger *slog.Logger
	store  store.Store
	groups GroupFinder
	feed   feed.Publisher
	locks  *keyedlock.Map
}

// New constructs the comment service.
func New(st store.Store, groups GroupFinder, publisher feed.Publisher, logger *slog.Logger, locks *keyedlock.Map) *Service {
	return &Service{logger: logger, store: st, groups: groups, feed: publisher, locks: locks}
}

type commentPostedPayload struct {
	CommentID domain.CommentID `json:"comment_id"`
	Author    string           `json:"author"`
	Text      string           `json:"text"`
}

// Post appends a comment. Append-only: no edits, no deletes, and the only
// rejections are malformed input and an unknown group.
func (s *Service) Post(ctx context.Context, groupID domain.GroupID, name, phone, text string) (*models.Comment, error) {
	author, err := domain.NewIdentity(name, phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid author identity")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"comment text exceeds %d characters", maxCommentLength)
	}

	group, err := s.groups.FindGroup(ctx, groupID)
	if err != nil {
		return nil, translate(err)
	}

	now := requestcontext.Now(ctx)
	comment := &models.Comment{
		ID:        domain.NewCommentID(),
		GroupID:   groupID,
		Author:    author,
		Text:      text,
		CreatedAt: now,
	}
	s.locks.Lock(groupID.String())
	defer s.locks.Unlock(groupID.String())

	if err := s.store.Append(ctx, comment); err != nil {
		return nil, translate(err)
	}

	s.logger.InfoContext(ctx, "comment posted",
		slog.String("group_id", groupID.String()),
		slog.String("comment_id", comment.ID.String()))

	s.feed.Publish(ctx, feed.NewEvent(feed.KindCommentPosted, groupID, group.DepartureKey(), now, commentPostedPayload{
		CommentID: comment.ID,
		Author:    author.Name,
		Text:      text,
	}))
	return comment, nil
}

// List returns a group's comments oldest first.
func (s *Service) List(ctx context.Context, groupID domain.GroupID) ([]*models.Comment, error) {
	comments, err := s.store.List(ctx, groupID)
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "group not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "comment log unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "comment log failed")
	}
}
