package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/core"
)

// enableMicrophone applies the capability enable policy: at most one retry,
// with the pre-connect buffer forced off, and only when that option was on
// and the failure implicates it. Any other failure, or a failed retry,
// surfaces as ErrCapability. Stateless across attempts.
func enableMicrophone(ctx context.Context, room core.RoomSession, opts core.MicrophoneOptions) error {
	err := room.EnableMicrophone(ctx, opts)
	if err == nil {
		return nil
	}

	if opts.PreConnectBuffer && core.IsPreConnectConflict(err) {
		log.Warn().Str("module", "session").Err(err).
			Msg("microphone enable conflict, retrying without pre-connect buffer")
		opts.PreConnectBuffer = false
		if err = room.EnableMicrophone(ctx, opts); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v", ErrCapability, err)
}
