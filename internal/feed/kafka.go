package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// archiveQueue bounds how many events may wait for the broker before new
// ones are dropped. Archival is an audit trail, not the delivery path, so
// it never backpressures publishers.
const archiveQueue = 1024

// Sink is the durable end of the archiver. Satisfied by the platform
// kafka producer.
type Sink interface {
	Produce(ctx context.Context, key string, value []byte) error
}

// Archiver tees every published event into a durable log. Publishes are
// forwarded to next immediately; archival happens on a background worker
// keyed by group so one group's history stays in order.
type Archiver struct {
	next Publisher
	sink Sink
	log  *slog.Logger

	queue  chan Event
	closed chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewArchiver starts the archival worker.
func NewArchiver(next Publisher, sink Sink, log *slog.Logger) *Archiver {
	a := &Archiver{
		next:   next,
		sink:   sink,
		log:    log,
		queue:  make(chan Event, archiveQueue),
		closed: make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Publish forwards to the wrapped publisher and enqueues the event for
// archival. A full queue drops the event with a warning.
func (a *Archiver) Publish(ctx context.Context, event Event) {
	a.next.Publish(ctx, event)

	select {
	case a.queue <- event:
	case <-a.closed:
	default:
		a.log.WarnContext(ctx, "archive queue full, dropping event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_kind", string(event.Kind)))
	}
}

// Close stops accepting events, drains the queue, and waits for the worker.
func (a *Archiver) Close() {
	a.once.Do(func() { close(a.closed) })
	a.wg.Wait()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for {
		select {
		case event := <-a.queue:
			a.archive(event)
		case <-a.closed:
			for {
				select {
				case event := <-a.queue:
					a.archive(event)
				default:
					return
				}
			}
		}
	}
}

func (a *Archiver) archive(event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		a.log.Error("encode archive event", slog.Any("error", err))
		return
	}
	if err := a.sink.Produce(context.Background(), event.GroupID.String(), value); err != nil {
		a.log.Error("archive event",
			slog.String("event_id", event.ID.String()),
			slog.Any("error", err))
	}
}
