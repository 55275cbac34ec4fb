// Package store persists the append-only comment log.
package store

import (
	"context"

	"cabshare/internal/comment/models"
	"cabshare/pkg/domain"
)

// Store appends and lists comments. Append returns sentinel.ErrNotFound for
// an unknown group; List returns a group's comments oldest first.
type Store interface {
	Append(ctx context.Context, comment *models.Comment) error
	List(ctx context.Context, groupID domain.GroupID) ([]*models.Comment, error)
}
