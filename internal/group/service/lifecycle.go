package service

import (
	"context"
	"log/slog"
	"time"

	"cabshare/internal/feed"
	"cabshare/internal/group/metrics"
	"cabshare/internal/group/models"
	"cabshare/internal/group/store"
	"cabshare/pkg/domain"
)

// sweepLookbackDays bounds how far back a pass looks for freshly expired
// groups. Anything older was either announced by an earlier pass or expired
// so long ago that announcing it now would not help any subscriber.
const sweepLookbackDays = 7

// Sweeper periodically announces groups that crossed into expiry. Reads
// never depend on it: status is derived on every read, the sweep only turns
// the passive transition into a feed event so observers hear about it.
type Sweeper struct {
	logger   *slog.Logger
	store    store.Store
	feed     feed.Publisher
	metrics  *metrics.Metrics
	interval time.Duration

	announced map[domain.GroupID]domain.Date
}

// NewSweeper constructs a sweeper with the given pass interval.
func NewSweeper(
	st store.Store,
	publisher feed.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval time.Duration) *Sweeper {
	return &Sweeper{
		logger:    logger,
		store:     st,
		feed:      publisher,
		metrics:   m,
		interval:  interval,
		announced: make(map[domain.GroupID]domain.Date),
	}
}

// Run sweeps until the context ends. Announcements are at-least-once: a
// restart forgets what was announced and a future pass may repeat, which
// subscribers tolerate the same way they tolerate any redelivery.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx, time.Now())
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	today := domain.DateOf(now)
	horizon := today.AddDays(-sweepLookbackDays)

	// Only groups expired within the lookback window are listed, so a pass
	// stays proportional to recent departures rather than to every group
	// ever created.
	groups, err := s.store.ListGroups(ctx, store.Filter{AsOf: horizon, Until: today})
	if err != nil {
		s.logger.WarnContext(ctx, "lifecycle sweep failed", slog.Any("error", err))
		return
	}

	for id, travelDate := range s.announced {
		if travelDate.Before(horizon) {
			delete(s.announced, id)
		}
	}

	for _, group := range groups {
		if group.StatusAt(now) != models.StatusExpired {
			continue
		}
		if _, done := s.announced[group.ID]; done {
			continue
		}
		s.announced[group.ID] = group.TravelDate
		s.metrics.IncGroupsExpired()
		s.logger.InfoContext(ctx, "group expired",
			slog.String("group_id", group.ID.String()),
			slog.String("departure", group.DepartureKey().String()))
		s.feed.Publish(ctx, feed.NewEvent(feed.KindGroupExpired, group.ID, group.DepartureKey(), now, nil))
	}
}
