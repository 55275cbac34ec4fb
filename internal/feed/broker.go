package feed

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is how many undelivered events a subscriber may hold
// before the broker disconnects it. A healthy SSE writer drains far faster
// than groups mutate, so hitting the ceiling means the consumer is gone.
const subscriberBuffer = 32

type subscription struct {
	topic Topic
	ch    chan Event
}

// Broker is the in-process fan-out. Publish delivers to every live
// subscriber of the event's topics in commit order; a subscriber that
// cannot keep up is closed and dropped rather than allowed to stall
// the publisher.
type Broker struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[Topic]map[*subscription]struct{}
	closed bool
}

// NewBroker returns an empty broker.
func NewBroker(log *slog.Logger) *Broker {
	return &Broker{
		log:  log,
		subs: make(map[Topic]map[*subscription]struct{}),
	}
}

// Publish fans the event out to the subscribers of each of its topics.
// Delivery never blocks: a full subscriber buffer disconnects that
// subscriber.
func (b *Broker) Publish(ctx context.Context, event Event) {
	var stale []*subscription

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	for _, topic := range event.Topics() {
		for sub := range b.subs[topic] {
			select {
			case sub.ch <- event:
			default:
				stale = append(stale, sub)
			}
		}
	}
	b.mu.RUnlock()

	for _, sub := range stale {
		b.remove(sub)
		b.log.WarnContext(ctx, "dropping slow feed subscriber",
			slog.String("topic", string(sub.topic)),
			slog.String("event_kind", string(event.Kind)))
	}
}

// Subscribe registers for a topic. The returned channel carries events in
// the order they were published and is closed when cancel is called, the
// context ends, or the subscriber falls behind. Cancel is idempotent.
func (b *Broker) Subscribe(ctx context.Context, topic Topic) (<-chan Event, func()) {
	sub := &subscription{topic: topic, ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[topic] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.remove(sub) })
	}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return sub.ch, cancel
}

// Close disconnects every subscriber. Further publishes are dropped and
// further subscribes return an already-closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	b.subs = make(map[Topic]map[*subscription]struct{})
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	set, ok := b.subs[sub.topic]
	if !ok {
		return
	}
	if _, live := set[sub]; !live {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}
