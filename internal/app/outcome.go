package app

import (
	"github.com/samber/lo"

	"github.com/dkeye/roomchat/internal/domain"
)

// Delivery sends one event to a fixed set of connections. Room is set for
// room-scoped deliveries; the transport only writes those to connections
// still in that room's delivery group.
type Delivery struct {
	To    []domain.ConnID
	Room  domain.RoomName
	Event Event
}

// Subscription binds a connection to a room's delivery group.
type Subscription struct {
	Conn domain.ConnID
	Room domain.RoomName
}

// Outcome is everything the transport has to do for one inbound event.
// Subscribe is applied first, then Deliveries in order, then Evict.
type Outcome struct {
	Subscribe  []Subscription
	Deliveries []Delivery
	Evict      []Subscription
	// Err is the reason an event was rejected or ignored, nil on success.
	Err error
}

func (o *Outcome) deliver(to []domain.ConnID, room domain.RoomName, ev Event) {
	if len(to) == 0 {
		return
	}
	o.Deliveries = append(o.Deliveries, Delivery{To: to, Room: room, Event: ev})
}

func (o *Outcome) direct(conn domain.ConnID, ev Event) {
	o.deliver([]domain.ConnID{conn}, "", ev)
}

// Empty reports whether the transport has nothing to do.
func (o Outcome) Empty() bool {
	return len(o.Subscribe) == 0 && len(o.Deliveries) == 0 && len(o.Evict) == 0
}

func connsOf(members []domain.Member) []domain.ConnID {
	return lo.Uniq(lo.Map(members, func(m domain.Member, _ int) domain.ConnID { return m.Conn }))
}

func connsExcept(members []domain.Member, conn domain.ConnID) []domain.ConnID {
	return lo.Without(connsOf(members), conn)
}
