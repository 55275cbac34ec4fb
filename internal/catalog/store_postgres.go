package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cabshare/pkg/platform/sentinel"
)

// Postgres reads the trains table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a postgres-backed catalog.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByNumber(ctx context.Context, trainNumber string) (*Train, error) {
	var t Train
	err := s.db.QueryRowContext(ctx, `
		SELECT train_number, train_name, departure_time, destination_station
		FROM trains
		WHERE train_number = $1
	`, trainNumber).Scan(&t.TrainNumber, &t.TrainName, &t.DepartureTime, &t.DestinationStation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find train: %w", err)
	}
	return &t, nil
}

// Seed upserts the given trains; used at startup so a fresh database serves
// the same schedule the in-memory catalog does.
func (s *Postgres) Seed(ctx context.Context, trains []Train) error {
	for _, t := range trains {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO trains (train_number, train_name, departure_time, destination_station)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (train_number) DO UPDATE SET
				train_name = EXCLUDED.train_name,
				departure_time = EXCLUDED.departure_time,
				destination_station = EXCLUDED.destination_station
		`, t.TrainNumber, t.TrainName, t.DepartureTime, t.DestinationStation)
		if err != nil {
			return fmt.Errorf("seed train %s: %w", t.TrainNumber, err)
		}
	}
	return nil
}
