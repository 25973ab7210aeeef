package rtc

import (
	"testing"

	"github.com/ranjithRW/voicelink/internal/adapters/signal"
	"github.com/ranjithRW/voicelink/internal/core"
)

func TestClassifyPublishError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg      string
		conflict bool
	}{
		{"pre-connect buffer in use by another publisher", true},
		{"audio track already published", true},
		{"permission denied", false},
		{"room full", false},
	}
	for _, tc := range tests {
		err := classifyPublishError(tc.msg)
		if got := core.IsPreConnectConflict(err); got != tc.conflict {
			t.Errorf("classifyPublishError(%q) conflict = %v, want %v", tc.msg, got, tc.conflict)
		}
	}
}

func TestRosterTracksJoinsAndLeaves(t *testing.T) {
	t.Parallel()

	r := NewRoom()
	events, cancel := r.Subscribe(core.EventParticipantJoined, core.EventParticipantLeft)
	defer cancel()

	r.handleSignal(nil, signal.Envelope{Type: "joined", Identity: "agent-7", IsAgent: true, AudioTracks: 1})
	ev := <-events
	if ev.Kind != core.EventParticipantJoined || ev.Participant == nil || !ev.Participant.IsAgent {
		t.Fatalf("unexpected join event %+v", ev)
	}

	got := r.RemoteParticipants()
	if len(got) != 1 || got[0].Identity != "agent-7" || got[0].AudioTracks != 1 {
		t.Fatalf("unexpected roster %+v", got)
	}

	r.handleSignal(nil, signal.Envelope{Type: "left", Identity: "agent-7"})
	ev = <-events
	if ev.Kind != core.EventParticipantLeft {
		t.Fatalf("unexpected leave event %+v", ev)
	}
	if got := r.RemoteParticipants(); len(got) != 0 {
		t.Fatalf("roster not emptied: %+v", got)
	}

	// leaving an unknown identity emits nothing
	r.handleSignal(nil, signal.Envelope{Type: "left", Identity: "ghost"})
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for unknown identity: %+v", ev)
	default:
	}
}

func TestPublishAckRouting(t *testing.T) {
	t.Parallel()

	r := NewRoom()
	ack := make(chan error, 1)
	r.mu.Lock()
	r.pubAck = ack
	r.mu.Unlock()

	r.handleSignal(nil, signal.Envelope{Type: "publish-error", Error: "pre-connect buffer busy"})
	err := <-ack
	if !core.IsPreConnectConflict(err) {
		t.Fatalf("publish-error not classified: %v", err)
	}

	// no pending ack: must not panic or block
	r.handleSignal(nil, signal.Envelope{Type: "published"})
}

func TestConnectedStateAndEvents(t *testing.T) {
	t.Parallel()

	r := NewRoom()
	events, cancel := r.Subscribe(core.EventConnected, core.EventDisconnected)
	defer cancel()

	r.handleConnected(nil)
	if !r.IsConnected() {
		t.Fatal("room not connected after handleConnected")
	}
	if ev := <-events; ev.Kind != core.EventConnected {
		t.Fatalf("got %s, want connected", ev.Kind)
	}

	r.handleClosed(nil)
	if r.IsConnected() {
		t.Fatal("room still connected after handleClosed")
	}
	if ev := <-events; ev.Kind != core.EventDisconnected {
		t.Fatalf("got %s, want disconnected", ev.Kind)
	}

	// a second close is not re-announced
	r.handleClosed(nil)
	select {
	case ev := <-events:
		t.Fatalf("duplicate disconnect event %+v", ev)
	default:
	}
}

func TestSupersededConnectionCallbacksIgnored(t *testing.T) {
	t.Parallel()

	r := NewRoom()
	old := &Connection{}
	fresh := &Connection{}

	// A reconnect replaced old with fresh, and fresh already confirmed.
	r.mu.Lock()
	r.conn = fresh
	r.connected = true
	r.mu.Unlock()

	events, cancel := r.Subscribe(core.EventConnected, core.EventDisconnected, core.EventParticipantJoined)
	defer cancel()

	// The old connection's deferred close lands late.
	r.handleClosed(old)
	if !r.IsConnected() {
		t.Fatal("stale close cleared the live connection's state")
	}

	// Likewise its late connected callback and signaling traffic.
	r.handleConnected(old)
	r.handleSignal(old, signal.Envelope{Type: "joined", Identity: "ghost"})
	if got := r.RemoteParticipants(); len(got) != 0 {
		t.Fatalf("stale signaling mutated the roster: %+v", got)
	}
	select {
	case ev := <-events:
		t.Fatalf("stale callback published %s", ev.Kind)
	default:
	}

	// The live connection's close still announces the disconnect.
	r.handleClosed(fresh)
	if r.IsConnected() {
		t.Fatal("live close did not clear connected state")
	}
	if ev := <-events; ev.Kind != core.EventDisconnected {
		t.Fatalf("got %s, want disconnected", ev.Kind)
	}
}

func TestDeviceErrorSignal(t *testing.T) {
	t.Parallel()

	r := NewRoom()
	events, cancel := r.Subscribe(core.EventDeviceError)
	defer cancel()

	r.handleSignal(nil, signal.Envelope{Type: "device-error", Error: "capture device lost"})
	ev := <-events
	if ev.Kind != core.EventDeviceError || ev.Err == nil {
		t.Fatalf("unexpected device error event %+v", ev)
	}
}
