package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("signaling connection closed")

// Envelope is the wire frame for all signaling messages.
type Envelope struct {
	Type        string `json:"type"`
	SDP         string `json:"sdp,omitempty"`
	Candidate   string `json:"candidate,omitempty"`
	TrackID     string `json:"track_id,omitempty"`
	PreConnect  bool   `json:"pre_connect,omitempty"`
	Identity    string `json:"identity,omitempty"`
	IsAgent     bool   `json:"is_agent,omitempty"`
	AudioTracks int    `json:"audio_tracks,omitempty"`
	VideoTracks int    `json:"video_tracks,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Client is the websocket signaling leg of a room connection. Incoming
// envelopes are dispatched to recv from the read pump; onClosed fires once
// when the connection drops, whoever caused it.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	recv     func(Envelope)
	onClosed func()

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Dial connects to the room service's signaling endpoint. The access token
// travels as a bearer header.
func Dial(ctx context.Context, serverURL, token string, recv func(Envelope), onClosed func()) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/rtc"

	header := http.Header{"Authorization": {"Bearer " + token}}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			log.Error().Err(err).Str("module", "signal").Int("status", resp.StatusCode).Msg("dial rejected")
		}
		return nil, err
	}

	c := &Client{
		conn:     ws,
		send:     make(chan []byte, 32),
		recv:     recv,
		onClosed: onClosed,
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

// Send marshals and queues an envelope. Fails fast when the connection is
// closed or the write queue is full.
func (c *Client) Send(env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errors.New("signal send queue full")
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.conn.Close()
		if c.onClosed != nil {
			c.onClosed()
		}
	})
}

func (c *Client) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Warn().Err(err).Str("module", "signal").Msg("readPump read error")
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("bad json")
			continue
		}
		if c.recv != nil {
			c.recv(env)
		}
	}
}
