package rtc

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// SampleSource produces encoded audio samples for the local track.
// Capture and encoding internals live behind this seam.
type SampleSource interface {
	Next() (media.Sample, error)
}

// silenceSource emits 20ms opus silence frames.
type silenceSource struct{}

var opusSilence = []byte{0xf8, 0xff, 0xfe}

func (silenceSource) Next() (media.Sample, error) {
	return media.Sample{Data: opusSilence, Duration: frameDuration}, nil
}

const (
	frameDuration = 20 * time.Millisecond
	preConnectCap = 500 // ~10s of frames retained before the flush
)

// microphone feeds one local audio track. With buffering on, samples are
// retained until goLive flushes them through the track.
type microphone struct {
	track  *webrtc.TrackLocalStaticSample
	sender *webrtc.RTPSender
	src    SampleSource
	onErr  func(error)

	mu      sync.Mutex
	live    bool
	pending []media.Sample

	stop     chan struct{}
	stopOnce sync.Once
}

func newMicrophone(src SampleSource, buffering bool, onErr func(error)) (*microphone, error) {
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "microphone", "voicelink")
	if err != nil {
		return nil, err
	}
	return &microphone{
		track: track,
		src:   src,
		onErr: onErr,
		live:  !buffering,
		stop:  make(chan struct{}),
	}, nil
}

func (m *microphone) run() {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			s, err := m.src.Next()
			if err != nil {
				log.Warn().Err(err).Str("module", "rtc").Msg("sample source failed")
				if m.onErr != nil {
					m.onErr(err)
				}
				return
			}
			m.mu.Lock()
			if !m.live {
				if len(m.pending) < preConnectCap {
					m.pending = append(m.pending, s)
				}
				m.mu.Unlock()
				continue
			}
			m.mu.Unlock()
			if err := m.track.WriteSample(s); err != nil {
				log.Warn().Err(err).Str("module", "rtc").Msg("write sample failed")
				return
			}
		}
	}
}

// goLive flushes anything buffered and switches to write-through.
func (m *microphone) goLive() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.live = true
	m.mu.Unlock()

	for _, s := range pending {
		if err := m.track.WriteSample(s); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("flush sample failed")
			return
		}
	}
	if len(pending) > 0 {
		log.Debug().Str("module", "rtc").Int("frames", len(pending)).Msg("pre-connect buffer flushed")
	}
}

func (m *microphone) close() {
	m.stopOnce.Do(func() { close(m.stop) })
}
