package session

import "errors"

// Terminal attempt errors. Step failures wrap one of these so callers and
// the notifier can classify without string matching.
var (
	ErrCredential          = errors.New("credential exchange failed")
	ErrInvalidCredentials  = errors.New("credentials missing server url or token")
	ErrTransport           = errors.New("transport connect failed")
	ErrConfirmationTimeout = errors.New("connection confirmation timed out")
	ErrConfirmationAborted = errors.New("disconnected before confirmation")
	ErrCapability          = errors.New("microphone enable failed")
)

// errorTitle maps a terminal attempt error to its user-facing name.
func errorTitle(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrCredential):
		return "CredentialError"
	case errors.Is(err, ErrTransport):
		return "TransportError"
	case errors.Is(err, ErrConfirmationTimeout):
		return "ConfirmationTimeout"
	case errors.Is(err, ErrConfirmationAborted):
		return "ConfirmationAborted"
	case errors.Is(err, ErrCapability):
		return "CapabilityError"
	}
	return "ConnectionError"
}
