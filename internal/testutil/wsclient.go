package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is a decoded server envelope.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSClient is a websocket test client speaking the event envelope protocol.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// DialWS connects to path on srv and returns a test client.
//
// Precondition: srv must be serving the websocket endpoint at path.
// Postcondition: Returns a connected WSClient or fails the test.
func DialWS(t *testing.T, srv *httptest.Server, path string) *WSClient {
	t.Helper()
	start := time.Now()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v [%s]", url, err, time.Since(start))
	}
	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("websocket client connected to %s [%s]", url, time.Since(start))
	return &WSClient{conn: conn, t: t}
}

// Emit sends an event with data encoded as JSON.
func (c *WSClient) Emit(event string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		c.t.Fatalf("encoding %s payload: %v", event, err)
	}
	c.EmitRaw([]byte(`{"event":"` + event + `","data":` + string(raw) + `}`))
}

// EmitRaw writes frame verbatim as a text message.
func (c *WSClient) EmitRaw(frame []byte) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.t.Fatalf("writing frame: %v", err)
	}
}

// ReadUntil reads frames until one carries event, skipping others.
//
// Postcondition: Returns the matching frame, or fails on timeout.
func (c *WSClient) ReadUntil(event string, timeout time.Duration) Frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	var seen []string
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.t.Fatalf("reading until %q: saw %v, error: %v", event, seen, err)
		}
		if f.Event == event {
			return f
		}
		seen = append(seen, f.Event)
	}
}

// Close closes the underlying connection.
func (c *WSClient) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}
