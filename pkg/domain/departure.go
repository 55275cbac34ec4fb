package domain

import (
	"fmt"
	"strings"
	"time"
)

// Direction indicates which way the cab travels relative to the station.
type Direction string

const (
	DirectionToStation Direction = "to_station"
	DirectionToCollege Direction = "to_college"
)

// ParseDirection validates and returns a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionToStation, DirectionToCollege:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction: %s", s)
}

func (d Direction) String() string { return string(d) }

// dateLayout is the canonical date-only form used in keys and storage.
const dateLayout = "2006-01-02"

// DepartureKey identifies one scheduled trip: a train on a travel date in a
// direction. It is externally sourced, comparable, and used only as a
// grouping and uniqueness key; equality is exact match on all three fields.
type DepartureKey struct {
	TrainNumber string    `json:"train_number"`
	TravelDate  Date      `json:"travel_date"`
	Direction   Direction `json:"direction"`
}

// NewDepartureKey validates the parts and returns a key.
func NewDepartureKey(trainNumber, travelDate, direction string) (DepartureKey, error) {
	trainNumber = strings.TrimSpace(trainNumber)
	if trainNumber == "" {
		return DepartureKey{}, fmt.Errorf("train number is required")
	}
	date, err := ParseDate(travelDate)
	if err != nil {
		return DepartureKey{}, err
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return DepartureKey{}, err
	}
	return DepartureKey{TrainNumber: trainNumber, TravelDate: date, Direction: dir}, nil
}

// String returns the canonical "train|date|direction" form used as an index
// and topic key segment.
func (k DepartureKey) String() string {
	return k.TrainNumber + "|" + k.TravelDate.String() + "|" + string(k.Direction)
}

// IsZero reports whether the key is unset.
func (k DepartureKey) IsZero() bool { return k == DepartureKey{} }

// Date is a calendar date without a time component, in UTC. Travel dates and
// expiry comparisons are whole-day granular, so times never leak in.
type Date struct {
	t time.Time
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid travel date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.t.Format(dateLayout) }

// Time returns the date at midnight UTC, for storage drivers.
func (d Date) Time() time.Time { return d.t }

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// Equal reports whether both values are the same calendar date.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// MarshalText serializes the canonical YYYY-MM-DD form.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses the canonical YYYY-MM-DD form.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
