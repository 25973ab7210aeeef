package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/adapters/rtc"
	"github.com/ranjithRW/voicelink/internal/app/session"
	"github.com/ranjithRW/voicelink/internal/config"
	"github.com/ranjithRW/voicelink/internal/core"
	"github.com/ranjithRW/voicelink/internal/creds"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	room := rtc.NewRoom()
	mgr := session.NewManager(room, creds.NewClient(cfg.CredentialEndpoint), session.Options{
		Request: core.ConnectionRequest{
			AgentName: cfg.AgentName,
			SandboxID: cfg.SandboxID,
		},
		Microphone:          core.MicrophoneOptions{PreConnectBuffer: cfg.PreConnectBuffer},
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		AgentCheckDelay:     cfg.AgentCheckDelay,
	})

	log.Info().Str("endpoint", cfg.CredentialEndpoint).Msg("voicelink client starting")
	mgr.Start()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	mgr.Stop()
	mgr.Close()
	log.Info().Msg("client exited gracefully")
}
