package core

import "github.com/dkeye/roomchat/internal/domain"

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection is one client socket as seen by the delivery side.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// RoomStore is the set of registry operations. RoomRegistry implements it
// with per-call locking, Tx implements it inside one Update.
type RoomStore interface {
	ListMembers(room domain.RoomName) []domain.Member
	IsBanned(room domain.RoomName, username string) bool
	TryAddMember(room domain.RoomName, m domain.Member) error
	RemoveMember(room domain.RoomName, conn domain.ConnID) (domain.Member, bool)
	Ban(room domain.RoomName, username string)
	FindByConnection(conn domain.ConnID) (domain.RoomName, domain.Member, bool)
}
