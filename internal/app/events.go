package app

import (
	"time"

	"github.com/dkeye/roomchat/internal/domain"
)

// Inbound event names.
const (
	EventJoinRoom    = "joinRoom"
	EventChatMessage = "chatMessage"
	EventExpelUser   = "expelUser"
	EventBanUser     = "banUser"
	EventLeaveRoom   = "leaveRoom"
	EventDisconnect  = "disconnect"
)

// Outbound event names.
const (
	EventMessage      = "message"
	EventUserJoined   = "userJoined"
	EventUserLeft     = "userLeft"
	EventUserExpelled = "userExpelled"
	EventUserBanned   = "userBanned"
	EventUserList     = "userList"
)

// Event is anything that travels in a {"type", "data"} envelope.
type Event interface {
	EventName() string
}

type JoinRoom struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
	Role     string `json:"role"`
}

type ChatMessage struct {
	Username string `json:"username" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Room     string `json:"room" validate:"required"`
	Role     string `json:"role"`
}

type ExpelUser struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

type BanUser struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

type LeaveRoom struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

// Disconnect is synthesized by the transport when a connection goes away.
type Disconnect struct{}

func (JoinRoom) EventName() string    { return EventJoinRoom }
func (ChatMessage) EventName() string { return EventChatMessage }
func (ExpelUser) EventName() string   { return EventExpelUser }
func (BanUser) EventName() string     { return EventBanUser }
func (LeaveRoom) EventName() string   { return EventLeaveRoom }
func (Disconnect) EventName() string  { return EventDisconnect }

type MessageType string

const (
	MessageNormal MessageType = "normal"
	MessageSystem MessageType = "system"
	MessageError  MessageType = "error"
)

// SystemUsername signs welcome and error messages.
const SystemUsername = "System"

type Message struct {
	Username  string      `json:"username"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	Role      domain.Role `json:"role,omitempty"`
}

type UserJoined struct {
	Username string `json:"username"`
}

type UserLeft struct {
	Username string `json:"username"`
}

type UserExpelled struct {
	Username string `json:"username"`
}

type UserBanned struct {
	Username string `json:"username"`
}

// UserList is the full member list of one room.
type UserList []domain.Member

func (Message) EventName() string      { return EventMessage }
func (UserJoined) EventName() string   { return EventUserJoined }
func (UserLeft) EventName() string     { return EventUserLeft }
func (UserExpelled) EventName() string { return EventUserExpelled }
func (UserBanned) EventName() string   { return EventUserBanned }
func (UserList) EventName() string     { return EventUserList }
