package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/config"
)

// SetupRouter builds the credential service surface.
func SetupRouter(cfg *config.Config) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := newHandler(cfg)
	api := r.Group("/api")
	api.POST("/connection-details", h.handleConnectionDetails)

	log.Info().Str("module", "adapters.http").Str("server_url", cfg.ServerURL).Msg("router setup")
	return r
}

func newHandler(cfg *config.Config) *handler {
	secret := cfg.Secret
	if secret == "" {
		// Ephemeral key: issued tokens stop validating on restart.
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no secret configured, using ephemeral signing key")
	}
	return &handler{
		cfg:   cfg,
		codec: securecookie.New([]byte(secret), nil),
	}
}
