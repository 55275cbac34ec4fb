package store

import (
	"context"
	"sort"
	"sync"

	"cabshare/internal/comment/models"
	groupmodels "cabshare/internal/group/models"
	"cabshare/pkg/domain"
)

// GroupFinder answers whether a group exists, so appends to unknown groups
// fail the same way the postgres foreign key makes them fail.
type GroupFinder interface {
	FindGroup(ctx context.Context, groupID domain.GroupID) (*groupmodels.Group, error)
}

// InMemory is the in-memory comment log, for tests and single-node runs.
type InMemory struct {
	groups GroupFinder

	mu       sync.RWMutex
	comments map[domain.GroupID][]*models.Comment
	seq      map[domain.CommentID]int
	next     int
}

// NewInMemory creates an empty comment log over the given group finder.
func NewInMemory(groups GroupFinder) *InMemory {
	return &InMemory{
		groups:   groups,
		comments: make(map[domain.GroupID][]*models.Comment),
		seq:      make(map[domain.CommentID]int),
	}
}

func (s *InMemory) Append(ctx context.Context, comment *models.Comment) error {
	if _, err := s.groups.FindGroup(ctx, comment.GroupID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := *comment
	s.comments[comment.GroupID] = append(s.comments[comment.GroupID], &snapshot)
	s.next++
	s.seq[comment.ID] = s.next
	return nil
}

func (s *InMemory) List(ctx context.Context, groupID domain.GroupID) ([]*models.Comment, error) {
	if _, err := s.groups.FindGroup(ctx, groupID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Comment, 0, len(s.comments[groupID]))
	for _, c := range s.comments[groupID] {
		snapshot := *c
		out = append(out, &snapshot)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}
