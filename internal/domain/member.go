package domain

// ConnID identifies one live transport connection. Assigned by the
// transport, never by the client.
type ConnID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleRoot  Role = "root"
)

// Member represents a connection's participation in one room.
// Snapshots handed out by the registry are values, not live handles.
type Member struct {
	Conn     ConnID   `json:"connectionId,omitempty"`
	Username string   `json:"username"`
	Room     RoomName `json:"room"`
	Role     Role     `json:"role"`
}

// NewMember avoids raw literals in callers and keeps the role rule in one place.
func NewMember(conn ConnID, username string, room RoomName, declared string, rootIdentity string) Member {
	return Member{
		Conn:     conn,
		Username: username,
		Room:     room,
		Role:     EffectiveRole(username, declared, rootIdentity),
	}
}

// EffectiveRole trusts the client-declared role except for the root
// identity override. Only user and admin may be declared.
func EffectiveRole(username, declared, rootIdentity string) Role {
	if rootIdentity != "" && username == rootIdentity {
		return RoleRoot
	}
	switch Role(declared) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Public strips the connection id for read APIs.
func (m Member) Public() Member {
	m.Conn = ""
	return m
}
