package catalog

import (
	"context"
	"strings"
	"sync"

	"cabshare/pkg/platform/sentinel"
)

// InMemory is a seeded catalog for standalone runs and tests.
type InMemory struct {
	mu     sync.RWMutex
	trains map[string]Train
}

// NewInMemory returns a catalog preloaded with the given trains.
func NewInMemory(seed ...Train) *InMemory {
	s := &InMemory{trains: make(map[string]Train, len(seed))}
	for _, t := range seed {
		s.trains[t.TrainNumber] = t
	}
	return s
}

// DefaultSeed lists the trains the original deployment served.
func DefaultSeed() []Train {
	return []Train{
		{TrainNumber: "12640", TrainName: "Brindavan Express", DepartureTime: "07:50", DestinationStation: "Chennai Central"},
		{TrainNumber: "12608", TrainName: "Lalbagh Express", DepartureTime: "15:30", DestinationStation: "Chennai Central"},
		{TrainNumber: "12658", TrainName: "Bengaluru Mail", DepartureTime: "22:45", DestinationStation: "KSR Bengaluru"},
		{TrainNumber: "16022", TrainName: "Kaveri Express", DepartureTime: "21:15", DestinationStation: "Mysuru Junction"},
		{TrainNumber: "12296", TrainName: "Sanghamitra Express", DepartureTime: "09:05", DestinationStation: "Danapur"},
	}
}

func (s *InMemory) FindByNumber(_ context.Context, trainNumber string) (*Train, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.trains[strings.TrimSpace(trainNumber)]; ok {
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

// Add registers a train; used by tests and the seeding path.
func (s *InMemory) Add(t Train) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trains[t.TrainNumber] = t
}
