package session

import (
	"time"

	"github.com/ranjithRW/voicelink/internal/core"
)

// DefaultConfirmationTimeout bounds the wait for the connected event.
const DefaultConfirmationTimeout = 10 * time.Second

// awaitConfirmation blocks until the transport confirms the connection, a
// disconnect wins the race, or the timeout elapses. If the transport is
// already connected at call time it returns immediately without
// registering any subscription. The subscription and the timer are
// released exactly once on every path.
func awaitConfirmation(room core.RoomSession, timeout time.Duration) error {
	if room.IsConnected() {
		return nil
	}

	events, cancel := room.Subscribe(core.EventConnected, core.EventDisconnected)
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return ErrConfirmationAborted
			}
			switch ev.Kind {
			case core.EventConnected:
				return nil
			case core.EventDisconnected:
				return ErrConfirmationAborted
			}
		case <-timer.C:
			return ErrConfirmationTimeout
		}
	}
}
