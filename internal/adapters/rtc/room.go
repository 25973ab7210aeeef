package rtc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/adapters/signal"
	"github.com/ranjithRW/voicelink/internal/core"
)

// Signatures the room service is known to emit when a publish loses the
// race against the pre-connect buffer. Matched here, at the wire boundary,
// so everything above works with the structured conflict mark instead.
var preConnectSignatures = []string{
	"pre-connect buffer",
	"track already published",
}

func classifyPublishError(msg string) error {
	for _, s := range preConnectSignatures {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%w: %s", core.ErrPreConnectConflict, msg)
		}
	}
	return errors.New(msg)
}

const publishAckTimeout = 10 * time.Second

// Room implements core.RoomSession over a pion peer connection with
// websocket signaling. Created once and reused; each Connect tears down
// whatever the previous attempt left behind.
type Room struct {
	bus       *core.Bus
	webrtcCfg webrtc.Configuration
	src       SampleSource

	mu           sync.Mutex
	conn         *Connection
	sig          *signal.Client
	connected    bool
	participants map[string]core.Participant
	mic          *microphone
	pubAck       chan error
}

func NewRoom() *Room {
	return &Room{
		bus:          core.NewBus(),
		webrtcCfg:    DefaultWebRTCConfig(),
		src:          silenceSource{},
		participants: make(map[string]core.Participant),
	}
}

// SetSampleSource replaces the default silence source. Call before Connect.
func (r *Room) SetSampleSource(src SampleSource) {
	r.src = src
}

func (r *Room) Connect(ctx context.Context, serverURL, token string) error {
	r.mu.Lock()
	r.teardownLocked()
	r.mu.Unlock()

	conn, err := NewConnection(r.webrtcCfg)
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	// Callbacks carry their connection so a superseded attempt's deferred
	// close or late signaling cannot touch the current one.
	conn.OnConnected(func() { r.handleConnected(conn) })
	conn.OnClosed(func() { r.handleClosed(conn) })
	conn.Start()

	sig, err := signal.Dial(ctx, serverURL, token,
		func(env signal.Envelope) { r.handleSignal(conn, env) },
		func() { r.handleClosed(conn) })
	if err != nil {
		conn.Close()
		return fmt.Errorf("dial signaling: %w", err)
	}
	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		_ = sig.Send(signal.Envelope{Type: "candidate", Candidate: ci.Candidate})
	})

	// Register before the offer goes out: the answer may arrive right away.
	r.mu.Lock()
	r.conn = conn
	r.sig = sig
	r.mu.Unlock()

	offer, err := conn.CreateAndSetOffer()
	if err != nil {
		r.Disconnect()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := sig.Send(signal.Envelope{Type: "offer", SDP: offer.SDP}); err != nil {
		r.Disconnect()
		return fmt.Errorf("send offer: %w", err)
	}

	log.Info().Str("module", "rtc").Str("server", serverURL).Msg("connection initiated")
	return nil
}

func (r *Room) Disconnect() {
	r.mu.Lock()
	wasConnected := r.connected
	r.teardownLocked()
	r.mu.Unlock()
	if wasConnected {
		r.bus.Publish(core.Event{Kind: core.EventDisconnected})
	}
}

// teardownLocked releases the previous attempt's transport resources.
func (r *Room) teardownLocked() {
	if r.mic != nil {
		r.mic.close()
		r.mic = nil
	}
	if r.sig != nil {
		sig := r.sig
		r.sig = nil
		go sig.Close() // sig.Close may call handleClosed, which relocks
	}
	if r.conn != nil {
		conn := r.conn
		r.conn = nil
		go conn.Close()
	}
	r.connected = false
	r.participants = make(map[string]core.Participant)
	if r.pubAck != nil {
		r.pubAck <- signal.ErrClosed
		r.pubAck = nil
	}
}

func (r *Room) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Room) Subscribe(kinds ...core.EventKind) (<-chan core.Event, func()) {
	return r.bus.Subscribe(kinds...)
}

func (r *Room) RemoteParticipants() []core.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}

// EnableMicrophone publishes the local audio track and waits for the room
// service to acknowledge it. Publish rejections come back classified, so
// callers can tell a pre-connect conflict from anything else.
func (r *Room) EnableMicrophone(ctx context.Context, opts core.MicrophoneOptions) error {
	r.mu.Lock()
	conn, sig := r.conn, r.sig
	if conn == nil || sig == nil {
		r.mu.Unlock()
		return errors.New("no transport connection")
	}
	if r.mic != nil {
		r.mic.close()
		r.mic = nil
	}
	buffering := opts.PreConnectBuffer && !r.connected
	r.mu.Unlock()

	mic, err := newMicrophone(r.src, buffering, func(err error) {
		r.bus.Publish(core.Event{Kind: core.EventDeviceError, Err: err})
	})
	if err != nil {
		return fmt.Errorf("create audio track: %w", err)
	}
	sender, err := conn.AddTrack(mic.track)
	if err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}
	mic.sender = sender

	// Renegotiate so the track reaches the wire, then ask the room service
	// to accept the publication.
	offer, err := conn.CreateAndSetOffer()
	if err != nil {
		_ = conn.RemoveTrack(sender)
		return fmt.Errorf("renegotiate: %w", err)
	}
	if err := sig.Send(signal.Envelope{Type: "offer", SDP: offer.SDP}); err != nil {
		_ = conn.RemoveTrack(sender)
		return err
	}

	ack := make(chan error, 1)
	r.mu.Lock()
	r.pubAck = ack
	r.mu.Unlock()
	err = sig.Send(signal.Envelope{
		Type:       "publish",
		TrackID:    mic.track.ID(),
		PreConnect: opts.PreConnectBuffer,
	})
	if err == nil {
		select {
		case err = <-ack:
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(publishAckTimeout):
			err = errors.New("publish acknowledgement timeout")
		}
	}
	r.mu.Lock()
	r.pubAck = nil
	r.mu.Unlock()

	if err != nil {
		mic.close()
		_ = conn.RemoveTrack(sender)
		return err
	}

	r.mu.Lock()
	r.mic = mic
	connected := r.connected
	r.mu.Unlock()

	go mic.run()
	if connected || !opts.PreConnectBuffer {
		mic.goLive()
	}
	log.Info().Str("module", "rtc").Bool("pre_connect", opts.PreConnectBuffer).Msg("microphone published")
	return nil
}

// current reports whether owner is still the live connection. Superseded
// connections' callbacks are dropped, the same stale-completion rule the
// session manager applies to its own steps.
func (r *Room) current(owner *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return owner == r.conn
}

func (r *Room) handleConnected(owner *Connection) {
	r.mu.Lock()
	if owner != r.conn {
		r.mu.Unlock()
		return
	}
	r.connected = true
	mic := r.mic
	r.mu.Unlock()
	if mic != nil {
		mic.goLive()
	}
	r.bus.Publish(core.Event{Kind: core.EventConnected})
}

func (r *Room) handleClosed(owner *Connection) {
	r.mu.Lock()
	if owner != r.conn {
		r.mu.Unlock()
		return
	}
	wasConnected := r.connected
	r.connected = false
	if r.pubAck != nil {
		r.pubAck <- signal.ErrClosed
		r.pubAck = nil
	}
	r.mu.Unlock()
	if wasConnected {
		r.bus.Publish(core.Event{Kind: core.EventDisconnected})
	}
}

func (r *Room) handleSignal(owner *Connection, env signal.Envelope) {
	if !r.current(owner) {
		return
	}
	switch env.Type {
	case "answer":
		if owner == nil {
			return
		}
		if err := owner.ApplyAnswer(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  env.SDP,
		}); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("apply answer")
		}
	case "candidate":
		if owner == nil {
			return
		}
		if err := owner.AddICECandidate(webrtc.ICECandidateInit{Candidate: env.Candidate}); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("add candidate")
		}
	case "joined":
		p := core.Participant{
			Identity:    env.Identity,
			IsAgent:     env.IsAgent,
			AudioTracks: env.AudioTracks,
			VideoTracks: env.VideoTracks,
		}
		r.mu.Lock()
		r.participants[p.Identity] = p
		r.mu.Unlock()
		r.bus.Publish(core.Event{Kind: core.EventParticipantJoined, Participant: &p})
	case "left":
		r.mu.Lock()
		p, ok := r.participants[env.Identity]
		delete(r.participants, env.Identity)
		r.mu.Unlock()
		if ok {
			r.bus.Publish(core.Event{Kind: core.EventParticipantLeft, Participant: &p})
		}
	case "published":
		r.ackPublish(nil)
	case "publish-error":
		r.ackPublish(classifyPublishError(env.Error))
	case "device-error":
		r.bus.Publish(core.Event{Kind: core.EventDeviceError, Err: errors.New(env.Error)})
	default:
		log.Warn().Str("module", "rtc").Str("type", env.Type).Msg("unknown signal")
	}
}

func (r *Room) ackPublish(err error) {
	r.mu.Lock()
	ack := r.pubAck
	r.pubAck = nil
	r.mu.Unlock()
	if ack != nil {
		ack <- err
	}
}
