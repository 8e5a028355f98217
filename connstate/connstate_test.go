// File: connstate/connstate_test.go
// Author: momentics <momentics@gmail.com>

package connstate

import (
	"testing"

	"github.com/momentics/wsconnect/api"
)

func TestRegisterAndMainStreamRef(t *testing.T) {
	state := api.NewConnectionState()
	RegisterStream(state, "stream-1", api.StreamWebSocket)
	if got := state.MainStreamRef(); got != "stream-1" {
		t.Fatalf("MainStreamRef() = %q, want stream-1", got)
	}
	if !HasStream(state, "stream-1") {
		t.Fatalf("HasStream should report true for registered stream")
	}
}

func TestRemoveStream(t *testing.T) {
	state := api.NewConnectionState()
	RegisterStream(state, "stream-1", api.StreamWebSocket)
	RemoveStream(state, "stream-1")
	if HasStream(state, "stream-1") {
		t.Fatalf("stream should no longer be tracked after RemoveStream")
	}
	if got := state.MainStreamRef(); got != "" {
		t.Fatalf("MainStreamRef() = %q, want empty", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	state := api.NewConnectionState()
	RegisterStream(state, "stream-1", api.StreamWebSocket)
	state.Monitored = true

	Reset(state)
	if len(state.ActiveStreams) != 0 {
		t.Fatalf("ActiveStreams should be empty after Reset")
	}
	if state.Transport != nil || state.Monitored {
		t.Fatalf("Transport/Monitored should be cleared after Reset")
	}
}
