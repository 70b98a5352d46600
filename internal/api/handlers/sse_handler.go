package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/internal/scheduling"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

const (
	streamAppointments = "appointments"
	streamSchedule     = "schedule"

	defaultHeartbeat = 30 * time.Second
)

// AuthStateWatcher reports sign-in and sign-out events
type AuthStateWatcher interface {
	OnAuthStateChanged(ctx context.Context) (<-chan entities.AuthStateChange, error)
}

// SSEHandler handles Server-Sent Events for live appointment updates
type SSEHandler struct {
	store     scheduling.Subscriber
	auth      AuthStateWatcher
	clock     calendar.Clock
	metrics   *observability.Metrics
	heartbeat time.Duration

	clients map[string]int // stream -> connected clients
	mu      sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(store scheduling.Subscriber, auth AuthStateWatcher, clock calendar.Clock, metrics *observability.Metrics) *SSEHandler {
	return &SSEHandler{
		store:     store,
		auth:      auth,
		clock:     clock,
		metrics:   metrics,
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]int),
	}
}

// SetHeartbeat overrides the keep-alive interval
func (h *SSEHandler) SetHeartbeat(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

// StreamAppointments pushes the full appointment list on every change
// GET /api/stream/appointments
func (h *SSEHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	updates := make(chan interface{}, 1)

	h.serve(w, r, streamAppointments, updates, func(ctx context.Context) (func(), error) {
		return h.store.Subscribe(ctx, func(list []*entities.Appointment) {
			offerLatest(updates, map[string]interface{}{
				"appointments": list,
				"count":        len(list),
			})
		})
	})
}

// StreamSchedule pushes the rendered scheduling view; the view re-renders on
// data changes and as appointments cross into the past.
// GET /api/stream/schedule?month=YYYY-MM&selected=YYYY-MM-DD
func (h *SSEHandler) StreamSchedule(w http.ResponseWriter, r *http.Request) {
	opts, err := parseScheduleOptions(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	updates := make(chan interface{}, 1)

	h.serve(w, r, streamSchedule, updates, func(ctx context.Context) (func(), error) {
		controller := scheduling.NewController(h.store, nil, h.clock, opts)
		controller.OnRender(func(view scheduling.View) {
			offerLatest(updates, view)
		})
		if err := controller.Start(ctx); err != nil {
			return nil, err
		}
		return controller.Close, nil
	})
}

// serve runs one SSE connection until the client leaves or its session ends
func (h *SSEHandler) serve(w http.ResponseWriter, r *http.Request, stream string, updates <-chan interface{}, start func(ctx context.Context) (func(), error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var tokenID string
	if claims, ok := services.ClaimsFromContext(ctx); ok {
		tokenID = claims.TokenID
	}

	var authEvents <-chan entities.AuthStateChange
	if h.auth != nil && tokenID != "" {
		events, err := h.auth.OnAuthStateChanged(ctx)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		authEvents = events
	}

	stop, err := start(ctx)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.registerClient(stream)
	defer h.unregisterClient(stream)

	observability.RecordStreamDelta(ctx, h.metrics, stream, 1)
	defer observability.RecordStreamDelta(context.Background(), h.metrics, stream, -1)

	h.sendEvent(w, "connected", map[string]interface{}{
		"stream":    stream,
		"timestamp": h.clock.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("stream", stream).Msg("client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": h.clock.Now(),
			})
			flusher.Flush()
		case payload := <-updates:
			h.sendEvent(w, stream, payload)
			flusher.Flush()
		case change, ok := <-authEvents:
			if !ok {
				authEvents = nil
				continue
			}
			if change.Kind == entities.ChangeKindSignedOut && change.TokenID == tokenID {
				h.sendEvent(w, "signed_out", change)
				flusher.Flush()
				log.Info().Str("stream", stream).Str("user_id", change.UserID).Msg("closing stream for signed out session")
				return
			}
		}
	}
}

// offerLatest replaces any undelivered payload with the newer one
func offerLatest(ch chan interface{}, payload interface{}) {
	for {
		select {
		case ch <- payload:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// registerClient counts a connected client on stream
func (h *SSEHandler) registerClient(stream string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[stream]++
	log.Debug().Str("stream", stream).Int("total", h.clients[stream]).Msg("client registered")
}

// unregisterClient releases a client counted by registerClient
func (h *SSEHandler) unregisterClient(stream string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[stream]--
	log.Debug().Str("stream", stream).Int("remaining", h.clients[stream]).Msg("client unregistered")
	if h.clients[stream] <= 0 {
		delete(h.clients, stream)
	}
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients for debugging
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

// ClientCounts returns the connected clients per stream
func (h *SSEHandler) ClientCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.clients))
	for stream, n := range h.clients {
		counts[stream] = n
	}
	return counts
}
