package notify

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/observ"
)

// subscriber receives marshaled events. deliver must never block: it
// reports false when the delta had to be dropped.
type subscriber interface {
	deliver(data []byte) bool
}

// Hub tracks which subscribers belong to which room and relays deltas.
// Join/Leave are idempotent set operations, safe under concurrent
// connect/disconnect. Broadcast never blocks on and never fails the write
// that produced the delta.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[subscriber]struct{}
	broker Broker
	logger *zap.Logger
}

// NewHub creates a hub. broker may be nil, in which case deltas fan out to
// this process only, which is correct for a single-instance deployment.
func NewHub(broker Broker, logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[subscriber]struct{}),
		broker: broker,
		logger: logger,
	}
}

// Run starts consuming relayed events from the broker, if one is
// configured. It returns immediately; consumption stops when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	if h.broker == nil {
		return
	}
	go h.broker.Listen(ctx, func(data []byte) {
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			h.logger.Warn("discarding malformed relayed event", zap.Error(err))
			return
		}
		h.local(evt.Room, evt.Type, data)
	})
}

func (h *Hub) join(s subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[subscriber]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
}

func (h *Hub) leave(s subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// detach removes a subscriber from every room. Called on disconnect.
func (h *Hub) detach(s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast fans one event out to the given rooms. With a broker the event
// goes through the relay exactly once and each instance (this one included)
// delivers it locally on receipt; without one it is delivered in-process.
// Failures are logged and swallowed; a dropped delta is recoverable by
// re-pulling the rollup.
func (h *Hub) Broadcast(ctx context.Context, eventType string, payload any, rooms ...string) {
	observ.DeltasBroadcast.WithLabelValues(eventType).Inc()

	for _, room := range rooms {
		evt := Event{Type: eventType, Room: room, Payload: payload}
		data, err := json.Marshal(evt)
		if err != nil {
			h.logger.Error("marshal event", zap.String("event", eventType), zap.Error(err))
			continue
		}
		if h.broker != nil {
			if err := h.broker.Publish(ctx, data); err != nil {
				h.logger.Warn("relay publish failed, delta dropped",
					zap.String("event", eventType),
					zap.String("room", room),
					zap.Error(err),
				)
			}
			continue
		}
		h.local(room, eventType, data)
	}
}

// local delivers marshaled bytes to every current member of a room.
// Same-room events arrive in the order Broadcast was called; there is no
// ordering guarantee across rooms.
func (h *Hub) local(room, eventType string, data []byte) {
	h.mu.RLock()
	members := make([]subscriber, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if !s.deliver(data) {
			observ.DeltasDropped.Inc()
			h.logger.Debug("subscriber buffer full, delta dropped",
				zap.String("event", eventType),
				zap.String("room", room),
			)
		}
	}
}

// RoomCount reports current membership of a room, for health/debug surfaces.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
