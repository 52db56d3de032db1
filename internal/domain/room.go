package domain

// RoomName is case-sensitive and never normalized.
type RoomName string

type RoomInfo struct {
	Name        RoomName `json:"name"`
	MemberCount int      `json:"memberCount"`
}
