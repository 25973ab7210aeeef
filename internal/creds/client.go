package creds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ranjithRW/voicelink/internal/core"
)

// SandboxHeader carries the sandbox identifier to the exchange endpoint.
const SandboxHeader = "X-Sandbox-ID"

// Client fetches connection credentials from the exchange endpoint,
// one POST round trip per attempt.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type agentDirective struct {
	AgentName string `json:"agent_name"`
}

type exchangeBody struct {
	RoomConfig struct {
		Agents []agentDirective `json:"agents"`
	} `json:"room_config"`
}

// Fetch performs the exchange. A non-2xx status or a malformed response is
// an error; field validation is the caller's concern.
func (c *Client) Fetch(ctx context.Context, req core.ConnectionRequest) (core.Credentials, error) {
	var body io.Reader
	if req.AgentName != "" {
		var eb exchangeBody
		eb.RoomConfig.Agents = []agentDirective{{AgentName: req.AgentName}}
		b, err := json.Marshal(eb)
		if err != nil {
			return core.Credentials{}, fmt.Errorf("encode exchange body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("build exchange request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if req.SandboxID != "" {
		hreq.Header.Set(SandboxHeader, req.SandboxID)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("exchange round trip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Str("module", "creds").Int("status", resp.StatusCode).Msg("exchange rejected")
		return core.Credentials{}, fmt.Errorf("exchange endpoint returned %s", resp.Status)
	}

	var out core.Credentials
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Credentials{}, fmt.Errorf("decode exchange response: %w", err)
	}
	return out, nil
}
