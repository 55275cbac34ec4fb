// Package feed is the change-propagation layer. Services publish an event
// for every committed mutation (after commit, never before) and observers
// subscribe by departure or by group. Delivery is at-least-once and
// order-preserving per topic; events are a liveliness optimization, and a
// subscriber that misses delivery recovers full state with a plain read.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"cabshare/pkg/domain"
)

// Kind names a committed mutation.
type Kind string

const (
	KindGroupCreated    Kind = "group_created"
	KindMemberJoined    Kind = "member_joined"
	KindMemberLeft      Kind = "member_left"
	KindGroupBecameFull Kind = "group_became_full"
	KindGroupExpired    Kind = "group_expired"
	KindCommentPosted   Kind = "comment_posted"
)

// Event is one committed mutation. Payload carries kind-specific fields
// already serialized, so subscribers and the archiver share one wire form.
type Event struct {
	ID        uuid.UUID           `json:"id"`
	Kind      Kind                `json:"kind"`
	GroupID   domain.GroupID      `json:"group_id"`
	Departure domain.DepartureKey `json:"departure"`
	At        time.Time           `json:"at"`
	Payload   json.RawMessage     `json:"payload,omitempty"`
}

// Topic identifies a subscription scope.
type Topic string

// GroupTopic scopes to one group's membership and comments.
func GroupTopic(id domain.GroupID) Topic {
	return Topic("group:" + id.String())
}

// DepartureTopic scopes to all groups of one departure.
func DepartureTopic(key domain.DepartureKey) Topic {
	return Topic("departure:" + key.String())
}

// Topics returns the scopes this event fans out to.
func (e Event) Topics() []Topic {
	topics := make([]Topic, 0, 2)
	if !e.GroupID.IsNil() {
		topics = append(topics, GroupTopic(e.GroupID))
	}
	if !e.Departure.IsZero() {
		topics = append(topics, DepartureTopic(e.Departure))
	}
	return topics
}

// Publisher accepts committed events. Services call it only after their
// store mutation committed.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Subscriber delivers a topic's events in commit order until cancel is
// called or the subscriber falls too far behind and is disconnected.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic) (<-chan Event, func())
}

// Feed is both halves.
type Feed interface {
	Publisher
	Subscriber
}

// NewEvent stamps a fresh event.
func NewEvent(kind Kind, groupID domain.GroupID, key domain.DepartureKey, at time.Time, payload any) Event {
	e := Event{
		ID:        uuid.New(),
		Kind:      kind,
		GroupID:   groupID,
		Departure: key,
		At:        at,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

// Discard is a Publisher that drops everything; wiring for tests and for
// callers that do not observe.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
