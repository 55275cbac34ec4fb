// Package postgres opens the authoritative database and bootstraps its
// schema. The tables mirror the logical layout: groups with a secondary
// index on the departure key, members with a partial unique index on
// (departure, phone) scoped to seated members of non-expired groups, and
// comments indexed by (group, created_at).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects, verifies the connection, and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so restarts and test
// suites can run it unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trains (
		train_number        text PRIMARY KEY,
		train_name          text NOT NULL,
		departure_time      text NOT NULL,
		destination_station text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cab_groups (
		id               uuid PRIMARY KEY,
		train_number     text NOT NULL,
		travel_date      date NOT NULL,
		direction        text NOT NULL,
		departure_time   text NOT NULL,
		max_capacity     int  NOT NULL CHECK (max_capacity > 0),
		meeting_point    text NOT NULL,
		created_by_name  text NOT NULL,
		created_by_phone text NOT NULL,
		created_at       timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS cab_groups_departure_idx
		ON cab_groups (train_number, travel_date, direction)`,
	`CREATE INDEX IF NOT EXISTS cab_groups_listing_idx
		ON cab_groups (travel_date, departure_time, created_at)`,
	`CREATE TABLE IF NOT EXISTS cab_members (
		id           uuid PRIMARY KEY,
		group_id     uuid NOT NULL REFERENCES cab_groups(id),
		train_number text NOT NULL,
		travel_date  date NOT NULL,
		direction    text NOT NULL,
		member_name  text NOT NULL,
		phone_number text NOT NULL,
		joined_at    timestamptz NOT NULL,
		left_at      timestamptz
	)`,
	// The membership guard. Denormalizing the departure key onto members
	// lets one partial unique index serialize every concurrent
	// check-and-insert for the same (departure, phone) pair.
	`CREATE UNIQUE INDEX IF NOT EXISTS cab_members_one_per_departure_idx
		ON cab_members (train_number, travel_date, direction, phone_number)
		WHERE left_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS cab_members_group_idx
		ON cab_members (group_id, joined_at)`,
	`CREATE TABLE IF NOT EXISTS cab_comments (
		id           uuid PRIMARY KEY,
		group_id     uuid NOT NULL REFERENCES cab_groups(id),
		member_name  text NOT NULL,
		member_phone text NOT NULL,
		comment      text NOT NULL,
		created_at   timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS cab_comments_group_idx
		ON cab_comments (group_id, created_at)`,
}
