package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/core"
)

// State is the orchestrator's position in the connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingConfirmation
	StateEnablingCapability
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateEnablingCapability:
		return "enabling_capability"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// CredentialClient performs one credential exchange round trip per attempt.
type CredentialClient interface {
	Fetch(ctx context.Context, req core.ConnectionRequest) (core.Credentials, error)
}

// Options fixes one manager's attempt parameters.
type Options struct {
	Request             core.ConnectionRequest
	Microphone          core.MicrophoneOptions
	ConfirmationTimeout time.Duration // defaults to DefaultConfirmationTimeout
	AgentCheckDelay     time.Duration // bounded delay before the diagnostic agent scan
	Notifier            Notifier      // defaults to LogNotifier
}

// Manager sequences one connection attempt at a time: credential exchange,
// transport connect, confirmation wait, then microphone enable. It owns the
// room session's lifetime and is the only writer of state and the active
// flag; completions of an attempt abandoned by Close are discarded.
type Manager struct {
	room  core.RoomSession
	creds CredentialClient
	opts  Options

	mu     sync.Mutex
	state  State
	active bool
	closed bool
	guard  *abortGuard // current attempt's guard, nil before the first Start

	events       <-chan core.Event
	cancelEvents func()
}

func NewManager(room core.RoomSession, creds CredentialClient, opts Options) *Manager {
	if opts.ConfirmationTimeout <= 0 {
		opts.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	if opts.AgentCheckDelay <= 0 {
		opts.AgentCheckDelay = 2 * time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}

	m := &Manager{
		room:  room,
		creds: creds,
		opts:  opts,
		state: StateIdle,
	}
	m.events, m.cancelEvents = room.Subscribe(
		core.EventDisconnected,
		core.EventDeviceError,
		core.EventParticipantJoined,
		core.EventParticipantLeft,
	)
	go m.eventLoop()
	return m
}

// Start begins a connection attempt. While an attempt is in flight the call
// is a no-op; after a failure it begins a fresh attempt.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.closed || m.inFlightLocked() {
		m.mu.Unlock()
		return
	}
	g := newAbortGuard()
	m.guard = g
	m.active = true
	m.state = StateConnecting
	m.mu.Unlock()

	log.Info().Str("module", "session").Msg("connection attempt started")
	go m.run(g)
}

// Stop clears the active flag. Idempotent. Transport teardown belongs to
// Close, not here.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
}

// Close tears the manager down: trips the current attempt's guard before
// disconnecting so in-flight completions are discarded rather than surfaced
// as user-visible failures. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.active = false
	if m.guard != nil {
		m.guard.trip()
	}
	m.mu.Unlock()

	m.cancelEvents()
	m.room.Disconnect()
	log.Info().Str("module", "session").Msg("session manager closed")
}

// Active reports the externally observed session flag.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Room exposes the underlying room session for callers needing lower-level
// access.
func (m *Manager) Room() core.RoomSession {
	return m.room
}

func (m *Manager) inFlightLocked() bool {
	switch m.state {
	case StateConnecting, StateAwaitingConfirmation, StateEnablingCapability:
		return true
	}
	return false
}

func (m *Manager) run(g *abortGuard) {
	ctx := context.Background()

	creds, err := m.creds.Fetch(ctx, m.opts.Request)
	if err != nil {
		m.fail(g, fmt.Errorf("%w: %v", ErrCredential, err))
		return
	}
	if !creds.Valid() {
		m.fail(g, ErrInvalidCredentials)
		return
	}
	if m.abandoned(g) {
		return
	}

	if err := m.room.Connect(ctx, creds.ServerURL, creds.ParticipantToken); err != nil {
		m.fail(g, fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}
	if !m.advance(g, StateAwaitingConfirmation) {
		return
	}

	if err := awaitConfirmation(m.room, m.opts.ConfirmationTimeout); err != nil {
		m.fail(g, err)
		return
	}
	if !m.advance(g, StateEnablingCapability) {
		return
	}

	if err := enableMicrophone(ctx, m.room, m.opts.Microphone); err != nil {
		m.fail(g, err)
		return
	}
	if !m.advance(g, StateActive) {
		return
	}

	log.Info().Str("module", "session").Msg("session active")
	go m.agentCheck(g)
}

// abandoned reports whether teardown discarded the attempt. Checked before
// initiating a step, so a stale success never starts new transport work.
func (m *Manager) abandoned(g *abortGuard) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.tripped() {
		log.Debug().Str("module", "session").Msg("stale attempt success discarded")
		return true
	}
	return false
}

// advance moves to the next state unless the attempt was abandoned.
func (m *Manager) advance(g *abortGuard, s State) bool {
	m.mu.Lock()
	if g.tripped() {
		m.mu.Unlock()
		return false
	}
	m.state = s
	m.mu.Unlock()
	log.Debug().Str("module", "session").Str("state", s.String()).Msg("state advanced")
	return true
}

// fail terminates the attempt. With the guard tripped the error is stale:
// discarded without mutating state or notifying.
func (m *Manager) fail(g *abortGuard, err error) {
	m.mu.Lock()
	if g.tripped() {
		m.mu.Unlock()
		log.Debug().Str("module", "session").Err(err).Msg("stale attempt error discarded")
		return
	}
	m.active = false
	m.state = StateDisconnected
	m.mu.Unlock()

	log.Error().Str("module", "session").Err(err).Msg("connection attempt failed")
	m.opts.Notifier.ConnectionFailed(errorTitle(err), err.Error())
}

// eventLoop consumes room lifecycle events for the manager's lifetime.
// It mutates session state in exactly one case: an unsolicited disconnect
// while active. It never launches an attempt.
func (m *Manager) eventLoop() {
	for ev := range m.events {
		switch ev.Kind {
		case core.EventDisconnected:
			m.mu.Lock()
			if m.state == StateActive {
				m.active = false
				m.state = StateDisconnected
				m.mu.Unlock()
				log.Warn().Str("module", "session").Msg("room disconnected")
				continue
			}
			m.mu.Unlock()
		case core.EventDeviceError:
			log.Warn().Str("module", "session").Err(ev.Err).Msg("media device error")
		case core.EventParticipantJoined:
			if ev.Participant != nil {
				log.Info().Str("module", "session").
					Str("identity", ev.Participant.Identity).
					Bool("agent", ev.Participant.IsAgent).
					Msg("participant joined")
			}
		case core.EventParticipantLeft:
			if ev.Participant != nil {
				log.Info().Str("module", "session").
					Str("identity", ev.Participant.Identity).
					Msg("participant left")
			}
		}
	}
}

// agentCheck is a best-effort diagnostic: after a bounded delay, report
// whether an agent counterpart is present. Never affects state or errors.
func (m *Manager) agentCheck(g *abortGuard) {
	timer := time.NewTimer(m.opts.AgentCheckDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-g.done:
		return
	}

	for _, p := range m.room.RemoteParticipants() {
		if p.IsAgent {
			log.Info().Str("module", "session").
				Str("identity", p.Identity).
				Int("audio_tracks", p.AudioTracks).
				Int("video_tracks", p.VideoTracks).
				Msg("agent participant present")
			return
		}
	}
	log.Warn().Str("module", "session").Msg("no agent participant joined yet")
}
