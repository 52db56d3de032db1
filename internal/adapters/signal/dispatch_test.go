package signal

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/roomchat/internal/app"
	"github.com/dkeye/roomchat/internal/core"
	"github.com/dkeye/roomchat/internal/mocks"
)

// recorder keeps every frame written to one mocked connection.
type recorder struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (r *recorder) record(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) lastUserList(t *testing.T) []map[string]string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var last []map[string]string
	for _, f := range r.frames {
		var env frame
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Type != app.EventUserList {
			continue
		}
		last = nil
		require.NoError(t, json.Unmarshal(env.Data, &last))
	}
	return last
}

func TestDispatch_AppliesOutcomesInDecisionOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := core.NewRoomRegistry()
	mod := app.NewModeration(registry, rootID)
	hub := NewHub(nil)
	ctl := NewSignalWSController(mod, hub, Options{})

	rootConn := mocks.NewMockSignalConnection(ctrl)
	bobConn := mocks.NewMockSignalConnection(ctrl)
	var rootFrames recorder
	rootConn.EXPECT().TrySend(gomock.Any()).DoAndReturn(rootFrames.record).AnyTimes()
	bobConn.EXPECT().TrySend(gomock.Any()).Return(nil).AnyTimes()
	hub.Register("c-root", rootConn)
	hub.Register("c-bob", bobConn)

	// Given root in the lobby
	ctl.dispatch(func() app.Outcome {
		return mod.Join("c-root", app.JoinRoom{Username: rootID, Room: "lobby"})
	})

	// When root's expel of bob arrives while bob's join is still being
	// applied
	expelled := make(chan struct{})
	ctl.dispatch(func() app.Outcome {
		out := mod.Join("c-bob", app.JoinRoom{Username: "bob", Room: "lobby"})
		go func() {
			defer close(expelled)
			ctl.dispatch(func() app.Outcome {
				return mod.Expel("c-root", app.ExpelUser{Username: "bob", Room: "lobby"})
			})
		}()
		// Leave the expel time to overtake the join if nothing orders them
		time.Sleep(50 * time.Millisecond)
		return out
	})
	<-expelled

	// Then the hub ends in the same state as the registry
	req.Len(registry.ListMembers("lobby"), 1)
	req.False(hub.InRoom("c-bob", "lobby"))
	req.True(hub.InRoom("c-root", "lobby"))
	list := rootFrames.lastUserList(t)
	req.Len(list, 1)
	req.Equal(rootID, list[0]["username"])
}
