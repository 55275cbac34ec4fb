// Package handler streams feed events to clients over server-sent events.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cabshare/internal/feed"
	"cabshare/internal/transport/http/shared"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
)

// heartbeatInterval keeps idle streams alive through proxies.
const heartbeatInterval = 15 * time.Second

// Handler serves the event-stream endpoints.
type Handler struct {
	logger *slog.Logger
	feed   feed.Subscriber
}

// New creates a feed Handler.
func New(feed feed.Subscriber, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, feed: feed}
}

// Register registers the streaming routes. The routes carry no timeout
// middleware: a stream is expected to outlive any request deadline.
func (h *Handler) Register(r chi.Router) {
	r.Get("/departures/{trainNumber}/{travelDate}/{direction}/events", h.handleDepartureEvents)
	r.Get("/groups/{groupID}/events", h.handleGroupEvents)
}

func (h *Handler) handleDepartureEvents(w http.ResponseWriter, r *http.Request) {
	key, err := domain.NewDepartureKey(
		chi.URLParam(r, "trainNumber"),
		chi.URLParam(r, "travelDate"),
		chi.URLParam(r, "direction"),
	)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid departure"))
		return
	}
	h.stream(w, r, feed.DepartureTopic(key))
}

func (h *Handler) handleGroupEvents(w http.ResponseWriter, r *http.Request) {
	groupID, err := domain.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid group id"))
		return
	}
	h.stream(w, r, feed.GroupTopic(groupID))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, topic feed.Topic) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	ctx := r.Context()
	events, cancel := h.feed.Subscribe(ctx, topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-events:
			if !open {
				// Disconnected for falling behind; the client re-reads
				// state and reconnects.
				return
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.DebugContext(ctx, "stream write failed",
					slog.String("topic", string(topic)),
					slog.Any("error", err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event feed.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Kind, data)
	return err
}
