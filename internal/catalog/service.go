package catalog

import (
	"context"
	"errors"
	"strings"

	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/platform/sentinel"
)

// Service translates store facts into domain outcomes for the transport.
type Service struct {
	store Store
}

// NewService constructs the catalog service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// FindTrain looks up schedule metadata for a train number.
func (s *Service) FindTrain(ctx context.Context, trainNumber string) (*Train, error) {
	trainNumber = strings.TrimSpace(trainNumber)
	if trainNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "train number is required")
	}
	train, err := s.store.FindByNumber(ctx, trainNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "train %s not found", trainNumber)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "catalog lookup failed")
	}
	return train, nil
}
