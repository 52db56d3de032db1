package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roomchat/internal/core"
	"github.com/dkeye/roomchat/internal/domain"
)

const (
	msgBanned        = "You are banned from this room"
	msgUsernameTaken = "Username already taken in this room"
	msgWelcome       = "Welcome to room #%s!"
	msgNameTooLong   = "Username and room name are limited to %d characters"
)

// Moderation turns inbound events into registry mutations and the
// deliveries the transport has to make. It never touches a connection.
type Moderation struct {
	registry     *core.RoomRegistry
	rootIdentity string
	now          func() time.Time
}

type Option func(*Moderation)

// WithClock overrides the timestamp source of outbound messages.
func WithClock(now func() time.Time) Option {
	return func(m *Moderation) { m.now = now }
}

func NewModeration(registry *core.RoomRegistry, rootIdentity string, opts ...Option) *Moderation {
	m := &Moderation{
		registry:     registry,
		rootIdentity: rootIdentity,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Moderation) RootIdentity() string { return m.rootIdentity }

// Handle dispatches a decoded inbound event coming from conn.
func (m *Moderation) Handle(conn domain.ConnID, ev Event) Outcome {
	switch e := ev.(type) {
	case JoinRoom:
		return m.Join(conn, e)
	case ChatMessage:
		return m.Chat(conn, e)
	case ExpelUser:
		return m.Expel(conn, e)
	case BanUser:
		return m.Ban(conn, e)
	case LeaveRoom:
		return m.Leave(conn, e)
	case Disconnect:
		return m.Disconnect(conn)
	default:
		log.Warn().Str("module", "app.moderation").Str("conn", string(conn)).Str("type", ev.EventName()).Msg("unhandled event")
		return Outcome{}
	}
}

func (m *Moderation) Join(conn domain.ConnID, ev JoinRoom) Outcome {
	var out Outcome
	room := domain.RoomName(ev.Room)
	if err := validateJoin(ev.Username, room); err != nil {
		out.Err = err
		// Missing fields fail closed; oversized names are told why.
		if errors.Is(err, domain.ErrUsernameTooLong) || errors.Is(err, domain.ErrRoomNameTooLong) {
			out.direct(conn, m.errorMessage(fmt.Sprintf(msgNameTooLong, domain.MaxUsernameLen)))
		}
		log.Debug().Err(err).Str("module", "app.moderation").Str("conn", string(conn)).Msg("join dropped")
		return out
	}

	m.registry.Update(func(tx core.Tx) {
		if tx.IsBanned(room, ev.Username) {
			out.Err = fmt.Errorf("join %q as %q: %w", room, ev.Username, domain.ErrBanned)
			out.direct(conn, m.errorMessage(msgBanned))
			return
		}
		member := domain.NewMember(conn, ev.Username, room, ev.Role, m.rootIdentity)
		if err := tx.TryAddMember(room, member); err != nil {
			out.Err = err
			out.direct(conn, m.errorMessage(msgUsernameTaken))
			return
		}
		members := tx.ListMembers(room)

		out.Subscribe = append(out.Subscribe, Subscription{Conn: conn, Room: room})
		out.direct(conn, m.systemMessage(fmt.Sprintf(msgWelcome, room)))
		out.deliver(connsExcept(members, conn), room, UserJoined{Username: ev.Username})
		out.deliver(connsOf(members), room, UserList(members))
	})

	logger := log.Info().Str("module", "app.moderation").Str("conn", string(conn)).Str("room", string(room)).Str("username", ev.Username)
	if out.Err != nil {
		logger.Err(out.Err).Msg("join rejected")
	} else {
		logger.Msg("joined room")
	}
	return out
}

// Chat broadcasts without a membership check: a sender that is not in the
// room still reaches everyone who is.
func (m *Moderation) Chat(conn domain.ConnID, ev ChatMessage) Outcome {
	var out Outcome
	room := domain.RoomName(ev.Room)
	msg := Message{
		Username:  ev.Username,
		Message:   ev.Message,
		Timestamp: m.now(),
		Type:      MessageNormal,
		Role:      domain.EffectiveRole(ev.Username, ev.Role, m.rootIdentity),
	}

	m.registry.Update(func(tx core.Tx) {
		out.deliver(connsOf(tx.ListMembers(room)), room, msg)
	})

	log.Debug().Str("module", "app.moderation").Str("conn", string(conn)).Str("room", string(room)).Str("username", ev.Username).Msg("chat message")
	return out
}

func (m *Moderation) Expel(conn domain.ConnID, ev ExpelUser) Outcome {
	var out Outcome
	room := domain.RoomName(ev.Room)

	m.registry.Update(func(tx core.Tx) {
		if out.Err = m.authorize(tx, room, conn, ev.Username); out.Err != nil {
			return
		}
		target, ok := tx.FindByUsername(room, ev.Username)
		if !ok {
			out.Err = fmt.Errorf("expel %q from %q: %w", ev.Username, room, domain.ErrNoSuchTarget)
			return
		}
		tx.RemoveMember(room, target.Conn)
		remaining := tx.ListMembers(room)

		out.direct(target.Conn, UserExpelled{Username: ev.Username})
		out.deliver(connsOf(remaining), room, UserExpelled{Username: ev.Username})
		out.deliver(connsOf(remaining), room, UserList(remaining))
		m.evictIfGone(tx, &out, room, target.Conn)
	})

	m.logModeration(conn, room, ev.Username, "expel", out.Err)
	return out
}

// Ban records the ban even when the target is absent. A present target is
// removed but, unlike Expel, gets no notice of its own.
func (m *Moderation) Ban(conn domain.ConnID, ev BanUser) Outcome {
	var out Outcome
	room := domain.RoomName(ev.Room)

	m.registry.Update(func(tx core.Tx) {
		if out.Err = m.authorize(tx, room, conn, ev.Username); out.Err != nil {
			return
		}
		tx.Ban(room, ev.Username)

		target, present := tx.FindByUsername(room, ev.Username)
		if present {
			tx.RemoveMember(room, target.Conn)
		}
		remaining := tx.ListMembers(room)

		out.deliver(connsOf(remaining), room, UserBanned{Username: ev.Username})
		out.deliver(connsOf(remaining), room, UserList(remaining))
		if present {
			m.evictIfGone(tx, &out, room, target.Conn)
		}
	})

	m.logModeration(conn, room, ev.Username, "ban", out.Err)
	return out
}

// Leave removes the acting connection from the named room. The username in
// the event is informational; the notice carries the removed member's name.
func (m *Moderation) Leave(conn domain.ConnID, ev LeaveRoom) Outcome {
	var out Outcome
	room := domain.RoomName(ev.Room)

	m.registry.Update(func(tx core.Tx) {
		removed, ok := tx.RemoveMember(room, conn)
		if !ok {
			return
		}
		m.departed(tx, &out, room, removed)
	})

	log.Info().Str("module", "app.moderation").Str("conn", string(conn)).Str("room", string(room)).Str("username", ev.Username).Int("deliveries", len(out.Deliveries)).Msg("leave")
	return out
}

// Disconnect drops every membership held by conn. Calling it again is a no-op.
func (m *Moderation) Disconnect(conn domain.ConnID) Outcome {
	var out Outcome
	removed := 0

	m.registry.Update(func(tx core.Tx) {
		for {
			room, member, ok := tx.FindByConnection(conn)
			if !ok {
				return
			}
			tx.RemoveMember(room, conn)
			m.departed(tx, &out, room, member)
			removed++
		}
	})

	log.Info().Str("module", "app.moderation").Str("conn", string(conn)).Int("memberships", removed).Msg("disconnect")
	return out
}

func (m *Moderation) departed(tx core.Tx, out *Outcome, room domain.RoomName, member domain.Member) {
	remaining := tx.ListMembers(room)
	out.deliver(connsOf(remaining), room, UserLeft{Username: member.Username})
	out.deliver(connsOf(remaining), room, UserList(remaining))
	m.evictIfGone(tx, out, room, member.Conn)
}

// evictIfGone drops conn from the room's delivery group unless it still
// holds another membership there.
func (m *Moderation) evictIfGone(tx core.Tx, out *Outcome, room domain.RoomName, conn domain.ConnID) {
	if _, still := tx.FindInRoom(room, conn); still {
		return
	}
	out.Evict = append(out.Evict, Subscription{Conn: conn, Room: room})
}

// authorize checks that conn acts as root in room and that target is
// neither the actor nor the root identity.
func (m *Moderation) authorize(tx core.Tx, room domain.RoomName, conn domain.ConnID, target string) error {
	actor, ok := tx.FindInRoom(room, conn)
	if !ok || actor.Role != domain.RoleRoot {
		return fmt.Errorf("moderate %q in %q: %w", target, room, domain.ErrNotAuthorized)
	}
	if target == actor.Username || target == m.rootIdentity {
		return fmt.Errorf("moderate %q in %q: %w", target, room, domain.ErrSelfOrRootProtected)
	}
	return nil
}

func (m *Moderation) logModeration(conn domain.ConnID, room domain.RoomName, target, action string, err error) {
	if err != nil {
		log.Debug().Err(err).Str("module", "app.moderation").Str("conn", string(conn)).Str("room", string(room)).Str("target", target).Str("action", action).Msg("moderation ignored")
		return
	}
	log.Info().Str("module", "app.moderation").Str("conn", string(conn)).Str("room", string(room)).Str("target", target).Str("action", action).Msg("moderation applied")
}

func (m *Moderation) systemMessage(text string) Message {
	return Message{Username: SystemUsername, Message: text, Timestamp: m.now(), Type: MessageSystem}
}

func (m *Moderation) errorMessage(text string) Message {
	return Message{Username: SystemUsername, Message: text, Timestamp: m.now(), Type: MessageError}
}

func validateJoin(username string, room domain.RoomName) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	return domain.ValidateRoomName(room)
}
