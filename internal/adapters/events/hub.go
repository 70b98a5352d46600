package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// subscriberBuffer is the per-subscriber queue depth. A full queue drops the
// event for that subscriber; live collections re-read on the next event.
const subscriberBuffer = 100

// hub fans events out to local subscriber channels
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ChangeEvent]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[chan *entities.ChangeEvent]struct{})}
}

func (h *hub) add(channel string) (chan *entities.ChangeEvent, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan *entities.ChangeEvent]struct{})
	}
	ch := make(chan *entities.ChangeEvent, subscriberBuffer)
	h.subscribers[channel][ch] = struct{}{}
	return ch, len(h.subscribers[channel])
}

// remove closes ch and reports how many subscribers remain on channel
func (h *hub) remove(channel string, ch chan *entities.ChangeEvent) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[channel]
	if !ok {
		return 0, false
	}
	if _, ok := subs[ch]; !ok {
		return len(subs), false
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, channel)
	}
	return len(subs), true
}

func (h *hub) broadcast(channel string, event *entities.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriber := range h.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
}

func (h *hub) closeChannel(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for subscriber := range h.subscribers[channel] {
		close(subscriber)
	}
	delete(h.subscribers, channel)
}

func (h *hub) channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.subscribers))
	for channel := range h.subscribers {
		out = append(out, channel)
	}
	return out
}

func (h *hub) count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}
