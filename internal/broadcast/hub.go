package broadcast

import (
	"sync"

	"expofloor/pkg/logger"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Hub fans status updates out to the live viewers of each event. Every
// event gets its own room; rooms are created on first subscribe and torn
// down on last unsubscribe. Publish never blocks a mutating path: a
// subscriber whose buffer is full loses that delta and is expected to
// resync from a snapshot.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[chan StatusUpdate]struct{}

	log     *logger.Logger
	dropped uint64
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[chan StatusUpdate]struct{}),
		log:   log,
	}
}

// Subscribe registers a viewer on an event's room and returns its channel
// plus a cancel func. Cancel is idempotent and closes the channel.
func (h *Hub) Subscribe(eventID uuid.UUID) (<-chan StatusUpdate, func()) {
	ch := make(chan StatusUpdate, subscriberBuffer)

	h.mu.Lock()
	room, ok := h.rooms[eventID]
	if !ok {
		room = make(map[chan StatusUpdate]struct{})
		h.rooms[eventID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if room, ok := h.rooms[eventID]; ok {
				delete(room, ch)
				if len(room) == 0 {
					delete(h.rooms, eventID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an update to every subscriber of the event. Lagging
// subscribers are skipped and the drop is counted.
func (h *Hub) Publish(eventID uuid.UUID, update StatusUpdate) {
	h.mu.Lock()
	room, ok := h.rooms[eventID]
	if !ok {
		h.mu.Unlock()
		return
	}

	dropped := 0
	for ch := range room {
		select {
		case ch <- update:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.dropped += uint64(dropped)
	}
	h.mu.Unlock()

	if dropped > 0 && h.log != nil {
		h.log.LogBroadcastDropped(eventID.String(), dropped)
	}
}

// Subscribers reports the viewer count of one event's room.
func (h *Hub) Subscribers(eventID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[eventID])
}

// Dropped reports the total deltas dropped on lagging subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
