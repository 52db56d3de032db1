package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dkeye/roomchat/internal/app"
	"github.com/dkeye/roomchat/internal/core"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("bad payload")
)

const (
	eventPing = "ping"
	eventPong = "pong"
)

type ping struct{}

func (ping) EventName() string { return eventPing }

type pong struct{}

func (pong) EventName() string { return eventPong }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Type string    `json:"type"`
	Data app.Event `json:"data,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses one inbound frame. Anything malformed is rejected so the
// caller can drop it without touching the registry.
func Decode(data []byte) (app.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch env.Type {
	case app.EventJoinRoom:
		return decodeAs[app.JoinRoom](env.Data)
	case app.EventChatMessage:
		return decodeAs[app.ChatMessage](env.Data)
	case app.EventExpelUser:
		return decodeAs[app.ExpelUser](env.Data)
	case app.EventBanUser:
		return decodeAs[app.BanUser](env.Data)
	case app.EventLeaveRoom:
		return decodeAs[app.LeaveRoom](env.Data)
	case eventPing:
		return ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeAs[T app.Event](raw json.RawMessage) (app.Event, error) {
	var v T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrBadPayload)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return v, nil
}

func Encode(ev app.Event) (core.Frame, error) {
	b, err := json.Marshal(outEnvelope{Type: ev.EventName(), Data: ev})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return b, nil
}
