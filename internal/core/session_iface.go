package core

import "context"

// EventKind enumerates the room lifecycle events the client consumes.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventParticipantJoined
	EventParticipantLeft
	EventDeviceError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventParticipantJoined:
		return "participant_joined"
	case EventParticipantLeft:
		return "participant_left"
	case EventDeviceError:
		return "device_error"
	}
	return "unknown"
}

// Event is one lifecycle notification.
type Event struct {
	Kind        EventKind
	Participant *Participant // set for participant events
	Err         error        // set for device errors
}

// RoomSession is the underlying room transport.
// Created once per session manager and reused across attempts; the manager
// owns its lifetime. Connect reports only whether connection establishment
// was initiated successfully; the connected confirmation arrives as an
// EventConnected on the bus.
type RoomSession interface {
	Connect(ctx context.Context, serverURL, token string) error
	Disconnect()
	IsConnected() bool

	// Subscribe registers for the given event kinds. The returned cancel
	// must be called exactly once; after it returns no further events are
	// delivered and the channel is closed.
	Subscribe(kinds ...EventKind) (<-chan Event, func())

	EnableMicrophone(ctx context.Context, opts MicrophoneOptions) error
	RemoteParticipants() []Participant
}
