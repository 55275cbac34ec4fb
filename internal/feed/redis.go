package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// bridgeChannel is the Redis pub/sub channel all instances share.
const bridgeChannel = "cabshare:feed"

// envelope is the cross-instance wire form. Origin lets each instance skip
// the echo of its own publishes.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge spans brokers across instances over Redis pub/sub. Local
// publishes go to the local broker and to the shared channel; a background
// loop folds remote events back into the local broker so subscribers see
// mutations from every instance.
type RedisBridge struct {
	local  *Broker
	client *redis.Client
	log    *slog.Logger
	origin string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisBridge starts the remote-consumption loop and returns the bridge.
// It subscribes before returning so no remote event published afterwards is
// missed.
func NewRedisBridge(ctx context.Context, local *Broker, client *redis.Client, log *slog.Logger) (*RedisBridge, error) {
	loopCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		local:  local,
		client: client,
		log:    log,
		origin: uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	sub := client.Subscribe(loopCtx, bridgeChannel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, err
	}

	go b.consume(loopCtx, sub)
	return b, nil
}

// Publish delivers locally first, then to the shared channel. A Redis
// failure is logged and swallowed: the local mutation committed and local
// subscribers were served, remote ones recover with a read.
func (b *RedisBridge) Publish(ctx context.Context, event Event) {
	b.local.Publish(ctx, event)

	raw, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		b.log.ErrorContext(ctx, "encode feed envelope", slog.Any("error", err))
		return
	}
	if err := b.client.Publish(ctx, bridgeChannel, raw).Err(); err != nil {
		b.log.WarnContext(ctx, "publish feed event to redis",
			slog.String("event_kind", string(event.Kind)),
			slog.Any("error", err))
	}
}

// Subscribe delegates to the local broker.
func (b *RedisBridge) Subscribe(ctx context.Context, topic Topic) (<-chan Event, func()) {
	return b.local.Subscribe(ctx, topic)
}

// Close stops the consumption loop and waits for it to finish.
func (b *RedisBridge) Close() {
	b.cancel()
	<-b.done
}

func (b *RedisBridge) consume(ctx context.Context, sub *redis.PubSub) {
	defer close(b.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.WarnContext(ctx, "decode feed envelope", slog.Any("error", err))
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.local.Publish(ctx, env.Event)
		}
	}
}
