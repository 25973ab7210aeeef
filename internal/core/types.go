package core

import "errors"

// Credentials is what the exchange endpoint hands back for one attempt.
type Credentials struct {
	ServerURL        string `json:"serverUrl"`
	ParticipantToken string `json:"participantToken"`
}

// Valid reports whether both required fields are present.
func (c Credentials) Valid() bool {
	return c.ServerURL != "" && c.ParticipantToken != ""
}

// ConnectionRequest describes one attempt. Immutable once the attempt starts.
type ConnectionRequest struct {
	AgentName string
	SandboxID string
}

// MicrophoneOptions controls local audio publishing.
type MicrophoneOptions struct {
	// PreConnectBuffer retains captured samples gathered before the
	// connection is confirmed and flushes them once it is.
	PreConnectBuffer bool
}

// Participant is a read-only view of a remote room member.
type Participant struct {
	Identity    string
	IsAgent     bool
	AudioTracks int
	VideoTracks int
}

// ErrPreConnectConflict marks a publish failure attributable to the
// pre-connect buffer option. Transport adapters wrap their raw errors with it
// when the failure matches a known conflict signature.
var ErrPreConnectConflict = errors.New("pre-connect buffer conflict")

// IsPreConnectConflict reports whether err carries the pre-connect conflict mark.
func IsPreConnectConflict(err error) bool {
	return errors.Is(err, ErrPreConnectConflict)
}
