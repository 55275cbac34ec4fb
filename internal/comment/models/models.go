// Package models holds the comment log entry.
package models

import (
	"time"

	"cabshare/pkg/domain"
)

// Comment is one message on a group's board. Append-only; the only ordering
// guarantee is created_at within a group.
type Comment struct {
	ID        domain.CommentID
	GroupID   domain.GroupID
	Author    domain.Identity
	Text      string
	CreatedAt time.Time
}
