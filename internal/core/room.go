package core

import (
	"slices"

	"github.com/dkeye/roomchat/internal/domain"
)

// roomState holds the members of one room in join order.
type roomState struct {
	members []domain.Member
}

func (r *roomState) byUsername(username string) (int, bool) {
	i := slices.IndexFunc(r.members, func(m domain.Member) bool { return m.Username == username })
	return i, i >= 0
}

func (r *roomState) byConn(conn domain.ConnID) (int, bool) {
	i := slices.IndexFunc(r.members, func(m domain.Member) bool { return m.Conn == conn })
	return i, i >= 0
}

func (r *roomState) snapshot() []domain.Member {
	return slices.Clone(r.members)
}
