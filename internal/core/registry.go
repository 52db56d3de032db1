package core

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/roomchat/internal/domain"
)

type usernameSet map[string]struct{}

// RoomRegistry is the only owner of rooms, members and ban sets.
// A room exists while it has members; its ban set is dropped together
// with its last member.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[domain.RoomName]*roomState
	banned map[domain.RoomName]usernameSet
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[domain.RoomName]*roomState),
		banned: make(map[domain.RoomName]usernameSet),
	}
}

// Update runs fn with the registry locked. Every read-check-mutate-snapshot
// sequence of one event goes through a single Update.
func (r *RoomRegistry) Update(fn func(tx Tx)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(Tx{r: r})
}

func (r *RoomRegistry) ListMembers(room domain.RoomName) []domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listMembers(room)
}

func (r *RoomRegistry) IsBanned(room domain.RoomName, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isBanned(room, username)
}

func (r *RoomRegistry) TryAddMember(room domain.RoomName, m domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tryAddMember(room, m)
}

func (r *RoomRegistry) RemoveMember(room domain.RoomName, conn domain.ConnID) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeMember(room, conn)
}

func (r *RoomRegistry) Ban(room domain.RoomName, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ban(room, username)
}

func (r *RoomRegistry) FindByConnection(conn domain.ConnID) (domain.RoomName, domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByConnection(conn)
}

// Rooms lists live rooms sorted by name.
func (r *RoomRegistry) Rooms() []domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.MapToSlice(r.rooms, func(name domain.RoomName, st *roomState) domain.RoomInfo {
		return domain.RoomInfo{Name: name, MemberCount: len(st.members)}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *RoomRegistry) listMembers(room domain.RoomName) []domain.Member {
	st, ok := r.rooms[room]
	if !ok {
		return []domain.Member{}
	}
	return st.snapshot()
}

func (r *RoomRegistry) isBanned(room domain.RoomName, username string) bool {
	_, ok := r.banned[room][username]
	return ok
}

func (r *RoomRegistry) tryAddMember(room domain.RoomName, m domain.Member) error {
	st, ok := r.rooms[room]
	if !ok {
		st = &roomState{}
		r.rooms[room] = st
	}
	if _, taken := st.byUsername(m.Username); taken {
		return fmt.Errorf("join %q as %q: %w", room, m.Username, domain.ErrUsernameTaken)
	}
	m.Room = room
	st.members = append(st.members, m)
	log.Debug().Str("module", "core.registry").Str("room", string(room)).Str("conn", string(m.Conn)).Str("username", m.Username).Msg("member added")
	return nil
}

func (r *RoomRegistry) removeMember(room domain.RoomName, conn domain.ConnID) (domain.Member, bool) {
	st, ok := r.rooms[room]
	if !ok {
		return domain.Member{}, false
	}
	i, ok := st.byConn(conn)
	if !ok {
		return domain.Member{}, false
	}
	m := st.members[i]
	st.members = slices.Delete(st.members, i, i+1)
	log.Debug().Str("module", "core.registry").Str("room", string(room)).Str("conn", string(conn)).Str("username", m.Username).Msg("member removed")

	// Empty rooms and their ban sets go away with the last member.
	if len(st.members) == 0 {
		delete(r.rooms, room)
		delete(r.banned, room)
		log.Debug().Str("module", "core.registry").Str("room", string(room)).Msg("room deleted")
	}
	return m, true
}

func (r *RoomRegistry) ban(room domain.RoomName, username string) {
	set, ok := r.banned[room]
	if !ok {
		set = make(usernameSet)
		r.banned[room] = set
	}
	set[username] = struct{}{}
	log.Debug().Str("module", "core.registry").Str("room", string(room)).Str("username", username).Msg("username banned")
}

func (r *RoomRegistry) findByConnection(conn domain.ConnID) (domain.RoomName, domain.Member, bool) {
	for name, st := range r.rooms {
		if i, ok := st.byConn(conn); ok {
			return name, st.members[i], true
		}
	}
	return "", domain.Member{}, false
}

// Tx is the registry seen from inside Update. It must not escape fn.
type Tx struct {
	r *RoomRegistry
}

func (t Tx) ListMembers(room domain.RoomName) []domain.Member { return t.r.listMembers(room) }

func (t Tx) IsBanned(room domain.RoomName, username string) bool {
	return t.r.isBanned(room, username)
}

func (t Tx) TryAddMember(room domain.RoomName, m domain.Member) error {
	return t.r.tryAddMember(room, m)
}

func (t Tx) RemoveMember(room domain.RoomName, conn domain.ConnID) (domain.Member, bool) {
	return t.r.removeMember(room, conn)
}

func (t Tx) Ban(room domain.RoomName, username string) { t.r.ban(room, username) }

func (t Tx) FindByConnection(conn domain.ConnID) (domain.RoomName, domain.Member, bool) {
	return t.r.findByConnection(conn)
}

// FindByUsername is only needed inside a transaction, for moderation targets.
func (t Tx) FindByUsername(room domain.RoomName, username string) (domain.Member, bool) {
	st, ok := t.r.rooms[room]
	if !ok {
		return domain.Member{}, false
	}
	i, ok := st.byUsername(username)
	if !ok {
		return domain.Member{}, false
	}
	return st.members[i], true
}

// FindInRoom resolves a connection to its membership of one room.
func (t Tx) FindInRoom(room domain.RoomName, conn domain.ConnID) (domain.Member, bool) {
	st, ok := t.r.rooms[room]
	if !ok {
		return domain.Member{}, false
	}
	i, ok := st.byConn(conn)
	if !ok {
		return domain.Member{}, false
	}
	return st.members[i], true
}

var (
	_ RoomStore = (*RoomRegistry)(nil)
	_ RoomStore = Tx{}
)
