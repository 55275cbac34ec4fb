// Package metrics exposes the group coordinator's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts membership outcomes. Nil-safe: a nil receiver drops every
// observation, so tests and partial wiring need no registry.
type Metrics struct {
	GroupsCreated    prometheus.Counter
	MembersJoined    prometheus.Counter
	MembersLeft      prometheus.Counter
	DuplicateBooking prometheus.Counter
	GroupFull        prometheus.Counter
	GroupsExpired    prometheus.Counter
	JoinDuration     prometheus.Histogram
}

// New registers the group metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GroupsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_groups_created_total",
			Help: "Groups created.",
		}),
		MembersJoined: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_members_joined_total",
			Help: "Successful joins, creators included.",
		}),
		MembersLeft: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_members_left_total",
			Help: "Members who left a group.",
		}),
		DuplicateBooking: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_duplicate_booking_total",
			Help: "Joins rejected because the traveler already held a membership for the departure.",
		}),
		GroupFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_group_full_total",
			Help: "Joins rejected because the group had no open slot.",
		}),
		GroupsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "cabshare_groups_expired_total",
			Help: "Groups first observed expired by the lifecycle sweep.",
		}),
		JoinDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cabshare_join_duration_seconds",
			Help:    "End-to-end join latency including the capacity transaction.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncGroupsCreated() {
	if m != nil {
		m.GroupsCreated.Inc()
	}
}

func (m *Metrics) IncMembersJoined() {
	if m != nil {
		m.MembersJoined.Inc()
	}
}

func (m *Metrics) IncMembersLeft() {
	if m != nil {
		m.MembersLeft.Inc()
	}
}

func (m *Metrics) IncDuplicateBooking() {
	if m != nil {
		m.DuplicateBooking.Inc()
	}
}

func (m *Metrics) IncGroupFull() {
	if m != nil {
		m.GroupFull.Inc()
	}
}

func (m *Metrics) IncGroupsExpired() {
	if m != nil {
		m.GroupsExpired.Inc()
	}
}

func (m *Metrics) ObserveJoinDuration(seconds float64) {
	if m != nil {
		m.JoinDuration.Observe(seconds)
	}
}
