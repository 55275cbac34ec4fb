package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cabshare/internal/group/models"
	"cabshare/pkg/domain"
	"cabshare/pkg/platform/sentinel"
	txcontext "cabshare/pkg/platform/tx"
	"cabshare/pkg/requestcontext"
)

// uniqueViolation is the postgres error code raised by the membership guard
// index.
const uniqueViolation = "23505"

// Postgres persists groups and members. Each mutation runs inside one
// transaction: the capacity re-read locks the group row, and the partial
// unique index on (train_number, travel_date, direction, phone_number)
// WHERE left_at IS NULL is the membership guard: two concurrent
// check-and-inserts for the same pair serialize on it, and the loser gets a
// unique violation mapped to sentinel.ErrAlreadyBooked.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a postgres-backed group store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer joins an ambient transaction when one is in the context.
func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// runInTx executes fn inside a transaction carried through the context, so
// every store call fn makes joins the same atomic unit.
func (s *Postgres) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Postgres) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error {
	return s.runInTx(ctx, func(ctx context.Context) error {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO cab_groups (
				id, train_number, travel_date, direction, departure_time,
				max_capacity, meeting_point, created_by_name, created_by_phone, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			uuid.UUID(group.ID), group.TrainNumber, group.TravelDate.Time(),
			string(group.Direction), group.DepartureTime, group.Capacity,
			group.MeetingPoint, group.CreatedBy.Name, group.CreatedBy.Phone,
			group.CreatedAt,
		)
		if err != nil {
			return classify(err)
		}
		if err := s.insertMember(ctx, group, creator); err != nil {
			return err
		}
		group.MemberCount = 1
		return nil
	})
}

func (s *Postgres) AddMember(ctx context.Context, groupID domain.GroupID, member *models.Member) (*models.Group, error) {
	var out *models.Group
	err := s.runInTx(ctx, func(ctx context.Context) error {
		group, err := s.lockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if group.TravelDate.Before(domain.DateOf(now)) {
			return sentinel.ErrNotJoinable
		}
		if group.MemberCount >= group.Capacity {
			return sentinel.ErrCapacityReached
		}
		member.GroupID = groupID
		if err := s.insertMember(ctx, group, member); err != nil {
			return err
		}
		group.MemberCount++
		out = group
		return nil
	})
	return out, err
}

func (s *Postgres) RemoveMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (*models.Group, error) {
	var out *models.Group
	err := s.runInTx(ctx, func(ctx context.Context) error {
		group, err := s.lockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		res, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE cab_members
			SET left_at = $1
			WHERE id = $2 AND group_id = $3 AND left_at IS NULL
		`, requestcontext.Now(ctx), uuid.UUID(memberID), uuid.UUID(groupID))
		if err != nil {
			return classify(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return classify(err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		group.MemberCount--
		out = group
		return nil
	})
	return out, err
}

// lockGroup reads the group row FOR UPDATE together with its seated member
// count, pinning both against concurrent sibling mutations until commit.
func (s *Postgres) lockGroup(ctx context.Context, groupID domain.GroupID) (*models.Group, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT g.id, g.train_number, g.travel_date, g.direction, g.departure_time,
		       g.max_capacity, g.meeting_point, g.created_by_name, g.created_by_phone,
		       g.created_at,
		       (SELECT count(*) FROM cab_members m
		        WHERE m.group_id = g.id AND m.left_at IS NULL)
		FROM cab_groups g
		WHERE g.id = $1
		FOR UPDATE OF g
	`, uuid.UUID(groupID))
	return scanGroup(row)
}

func (s *Postgres) insertMember(ctx context.Context, group *models.Group, member *models.Member) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO cab_members (
			id, group_id, train_number, travel_date, direction,
			member_name, phone_number, joined_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(member.ID), uuid.UUID(group.ID), group.TrainNumber,
		group.TravelDate.Time(), string(group.Direction),
		member.Identity.Name, member.Identity.Phone, member.JoinedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyBooked
		}
		return classify(err)
	}
	return nil
}

func (s *Postgres) FindGroup(ctx context.Context, groupID domain.GroupID) (*models.Group, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT g.id, g.train_number, g.travel_date, g.direction, g.departure_time,
		       g.max_capacity, g.meeting_point, g.created_by_name, g.created_by_phone,
		       g.created_at,
		       (SELECT count(*) FROM cab_members m
		        WHERE m.group_id = g.id AND m.left_at IS NULL)
		FROM cab_groups g
		WHERE g.id = $1
	`, uuid.UUID(groupID))
	return scanGroup(row)
}

func (s *Postgres) ListGroups(ctx context.Context, filter Filter) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.train_number, g.travel_date, g.direction, g.departure_time,
		       g.max_capacity, g.meeting_point, g.created_by_name, g.created_by_phone,
		       g.created_at,
		       (SELECT count(*) FROM cab_members m
		        WHERE m.group_id = g.id AND m.left_at IS NULL)
		FROM cab_groups g
		WHERE 1=1
	`
	args := []any{}
	if filter.Departure != nil {
		query += fmt.Sprintf(" AND g.train_number = $%d AND g.travel_date = $%d AND g.direction = $%d",
			len(args)+1, len(args)+2, len(args)+3)
		args = append(args,
			filter.Departure.TrainNumber,
			filter.Departure.TravelDate.Time(),
			string(filter.Departure.Direction),
		)
	}
	if !filter.AsOf.IsZero() {
		query += fmt.Sprintf(" AND g.travel_date >= $%d", len(args)+1)
		args = append(args, filter.AsOf.Time())
	}
	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND g.travel_date < $%d", len(args)+1)
		args = append(args, filter.Until.Time())
	}
	query += " ORDER BY g.travel_date, g.departure_time, g.created_at"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return groups, nil
}

func (s *Postgres) ListMembers(ctx context.Context, groupID domain.GroupID) ([]*models.Member, error) {
	if _, err := s.FindGroup(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, group_id, member_name, phone_number, joined_at
		FROM cab_members
		WHERE group_id = $1 AND left_at IS NULL
		ORDER BY joined_at, id
	`, uuid.UUID(groupID))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		var (
			m       models.Member
			id, gid uuid.UUID
			name    string
			phone   string
		)
		if err := rows.Scan(&id, &gid, &name, &phone, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.ID = domain.MemberID(id)
		m.GroupID = domain.GroupID(gid)
		m.Identity = domain.Identity{Name: name, Phone: phone}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return members, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		g          models.Group
		id         uuid.UUID
		travelDate time.Time
		direction  string
		name       string
		phone      string
	)
	err := row.Scan(&id, &g.TrainNumber, &travelDate, &direction, &g.DepartureTime,
		&g.Capacity, &g.MeetingPoint, &name, &phone, &g.CreatedAt, &g.MemberCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify(err)
	}
	g.ID = domain.GroupID(id)
	g.TravelDate = domain.DateOf(travelDate)
	g.Direction = domain.Direction(direction)
	g.CreatedBy = domain.Identity{Name: name, Phone: phone}
	return &g, nil
}

// classify separates transient connectivity faults, which the caller may
// retry whole, from everything else.
func classify(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return err
}
