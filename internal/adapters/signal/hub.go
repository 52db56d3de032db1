package signal

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roomchat/internal/app"
	"github.com/dkeye/roomchat/internal/core"
	"github.com/dkeye/roomchat/internal/domain"
)

type hubEntry struct {
	conn  core.SignalConnection
	rooms map[domain.RoomName]struct{}
}

// Hub maps connection ids to live connections and tracks which room
// delivery groups each connection belongs to.
type Hub struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*hubEntry
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{Action: app.KickMember}
	}
	return &Hub{
		conns:  make(map[domain.ConnID]*hubEntry),
		policy: policy,
	}
}

func (h *Hub) Register(id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = &hubEntry{conn: conn, rooms: make(map[domain.RoomName]struct{})}
	log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("hub register")
}

func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("hub unregister")
}

// Len is the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// InRoom reports whether id is in the room's delivery group.
func (h *Hub) InRoom(id domain.ConnID, room domain.RoomName) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.conns[id]
	if !ok {
		return false
	}
	_, in := e.rooms[room]
	return in
}

// Apply carries out an Outcome: subscriptions, then deliveries, then evictions.
func (h *Hub) Apply(out app.Outcome) {
	if len(out.Subscribe) > 0 {
		h.mu.Lock()
		for _, s := range out.Subscribe {
			if e, ok := h.conns[s.Conn]; ok {
				e.rooms[s.Room] = struct{}{}
			}
		}
		h.mu.Unlock()
	}

	for _, d := range out.Deliveries {
		h.deliver(d)
	}

	if len(out.Evict) > 0 {
		h.mu.Lock()
		for _, s := range out.Evict {
			if e, ok := h.conns[s.Conn]; ok {
				delete(e.rooms, s.Room)
			}
		}
		h.mu.Unlock()
	}
}

// Send writes one event to one connection, outside any room group.
func (h *Hub) Send(id domain.ConnID, ev app.Event) {
	h.deliver(app.Delivery{To: []domain.ConnID{id}, Event: ev})
}

func (h *Hub) deliver(d app.Delivery) {
	frame, err := Encode(d.Event)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("deliver encode")
		return
	}

	var kick []core.SignalConnection
	h.mu.RLock()
	for _, id := range d.To {
		e, ok := h.conns[id]
		if !ok {
			continue
		}
		if d.Room != "" {
			if _, in := e.rooms[d.Room]; !in {
				continue
			}
		}
		err := e.conn.TrySend(frame)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrBackpressure) {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("deliver skipped")
			continue
		}
		switch h.policy.OnBackPressure(id) {
		case app.KickMember:
			log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", d.Event.EventName()).Msg("slow consumer kicked")
			kick = append(kick, e.conn)
		case app.DropFrame, app.NoAction:
			log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", d.Event.EventName()).Msg("frame dropped")
		}
	}
	h.mu.RUnlock()

	// Closing ends the read pump, which runs the disconnect cleanup.
	for _, c := range kick {
		c.Close()
	}
}
