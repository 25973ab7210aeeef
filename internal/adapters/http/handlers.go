package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/config"
	"github.com/ranjithRW/voicelink/internal/creds"
)

type handler struct {
	cfg   *config.Config
	codec *securecookie.SecureCookie
}

type agentDirective struct {
	AgentName string `json:"agent_name" binding:"required"`
}

type detailsRequest struct {
	RoomConfig struct {
		Agents []agentDirective `json:"agents" binding:"dive"`
	} `json:"room_config"`
}

// ConnectionDetails is the credential exchange response.
type ConnectionDetails struct {
	ServerURL        string `json:"serverUrl"`
	ParticipantToken string `json:"participantToken"`
	RoomName         string `json:"roomName"`
	ParticipantName  string `json:"participantName"`
}

// tokenClaims is what gets signed into a participant token.
type tokenClaims struct {
	Identity string
	Room     string
	Expires  int64
}

func (h *handler) handleConnectionDetails(c *gin.Context) {
	sandbox := c.GetHeader(creds.SandboxHeader)
	if sandbox == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sandbox id"})
		return
	}

	var req detailsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed agent directive"})
			return
		}
	}

	identity := "user-" + uuid.NewString()[:8]
	room := fmt.Sprintf("%s-%s", h.cfg.RoomName, sandbox)

	token, err := h.codec.Encode("participant", tokenClaims{
		Identity: identity,
		Room:     room,
		Expires:  time.Now().Add(h.cfg.TokenTTL).Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("token encode")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	ev := log.Info().Str("module", "adapters.http").Str("sandbox", sandbox).Str("identity", identity)
	if len(req.RoomConfig.Agents) > 0 {
		ev = ev.Str("agent", req.RoomConfig.Agents[0].AgentName)
	}
	ev.Msg("credentials issued")

	c.JSON(http.StatusOK, ConnectionDetails{
		ServerURL:        h.cfg.ServerURL,
		ParticipantToken: token,
		RoomName:         room,
		ParticipantName:  identity,
	})
}
