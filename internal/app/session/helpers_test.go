package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ranjithRW/voicelink/internal/core"
)

// fakeRoom is a scriptable core.RoomSession backed by the real event bus.
type fakeRoom struct {
	bus *core.Bus

	mu           sync.Mutex
	connected    bool
	connectErr   error
	connectCalls int
	onConnect    func(r *fakeRoom)
	micErrs      []error
	micCalls     []core.MicrophoneOptions
	participants []core.Participant
	disconnects  int
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{bus: core.NewBus()}
}

func (r *fakeRoom) Connect(ctx context.Context, serverURL, token string) error {
	r.mu.Lock()
	r.connectCalls++
	err := r.connectErr
	hook := r.onConnect
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(r)
	}
	return nil
}

func (r *fakeRoom) Disconnect() {
	r.mu.Lock()
	r.disconnects++
	r.connected = false
	r.mu.Unlock()
}

func (r *fakeRoom) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *fakeRoom) setConnected(v bool) {
	r.mu.Lock()
	r.connected = v
	r.mu.Unlock()
}

func (r *fakeRoom) Subscribe(kinds ...core.EventKind) (<-chan core.Event, func()) {
	return r.bus.Subscribe(kinds...)
}

func (r *fakeRoom) EnableMicrophone(ctx context.Context, opts core.MicrophoneOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.micCalls = append(r.micCalls, opts)
	if len(r.micErrs) == 0 {
		return nil
	}
	err := r.micErrs[0]
	r.micErrs = r.micErrs[1:]
	return err
}

func (r *fakeRoom) RemoteParticipants() []core.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participants
}

func (r *fakeRoom) micOpts() []core.MicrophoneOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.MicrophoneOptions, len(r.micCalls))
	copy(out, r.micCalls)
	return out
}

func (r *fakeRoom) connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectCalls
}

// connectAndConfirm wires Connect to immediately reach the connected
// condition, the common happy-path script.
func (r *fakeRoom) connectAndConfirm() {
	r.onConnect = func(r *fakeRoom) {
		r.setConnected(true)
		r.bus.Publish(core.Event{Kind: core.EventConnected})
	}
}

// fakeCreds scripts the credential exchange. If block is non-nil, Fetch
// waits on it before returning, simulating a slow round trip.
type fakeCreds struct {
	creds core.Credentials
	err   error
	block chan struct{}

	mu    sync.Mutex
	calls int
}

func (c *fakeCreds) Fetch(ctx context.Context, req core.ConnectionRequest) (core.Credentials, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.block != nil {
		<-c.block
	}
	return c.creds, c.err
}

func (c *fakeCreds) fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordNotifier counts user-facing failure notifications.
type recordNotifier struct {
	mu     sync.Mutex
	titles []string
	descs  []string
}

func (n *recordNotifier) ConnectionFailed(title, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.descs = append(n.descs, description)
}

func (n *recordNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.titles)
}

func (n *recordNotifier) lastTitle() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.titles) == 0 {
		return ""
	}
	return n.titles[len(n.titles)-1]
}

var errBoom = errors.New("boom")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
