package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cabshare/internal/comment/models"
	"cabshare/pkg/domain"
	"cabshare/pkg/platform/sentinel"
)

// foreignKeyViolation is raised when a comment references an unknown group.
const foreignKeyViolation = "23503"

// Postgres persists the comment log in cab_comments.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a postgres-backed comment store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, comment *models.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cab_comments (id, group_id, member_name, member_phone, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.UUID(comment.ID), uuid.UUID(comment.GroupID),
		comment.Author.Name, comment.Author.Phone,
		comment.Text, comment.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
			return fmt.Errorf("%w: group %s", sentinel.ErrNotFound, comment.GroupID)
		}
		return classify(err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, groupID domain.GroupID) ([]*models.Comment, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cab_groups WHERE id = $1)`, uuid.UUID(groupID),
	).Scan(&exists)
	if err != nil {
		return nil, classify(err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: group %s", sentinel.ErrNotFound, groupID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, member_name, member_phone, comment, created_at
		FROM cab_comments
		WHERE group_id = $1
		ORDER BY created_at, id
	`, uuid.UUID(groupID))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var (
			id      uuid.UUID
			gid     uuid.UUID
			comment models.Comment
		)
		if err := rows.Scan(&id, &gid, &comment.Author.Name, &comment.Author.Phone,
			&comment.Text, &comment.CreatedAt); err != nil {
			return nil, classify(err)
		}
		comment.ID = domain.CommentID(id)
		comment.GroupID = domain.GroupID(gid)
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return comments, nil
}

func classify(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return err
}
