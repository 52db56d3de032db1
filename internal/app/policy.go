package app

import (
	"fmt"

	"github.com/dkeye/roomchat/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(conn domain.ConnID) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return p.Action
}

// PolicyFromString maps the slow_consumer config value to a Policy.
func PolicyFromString(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{Action: KickMember}, nil
	case "drop":
		return SimplePolicy{Action: DropFrame}, nil
	default:
		return nil, fmt.Errorf("unknown slow consumer policy %q", name)
	}
}
