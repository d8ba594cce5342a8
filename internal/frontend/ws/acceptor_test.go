package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/pong/internal/config"
	"github.com/cory-johannsen/pong/internal/frontend/ws"
	"github.com/cory-johannsen/pong/internal/game/pong"
	"github.com/cory-johannsen/pong/internal/game/session"
	"github.com/cory-johannsen/pong/internal/gameserver"
	"github.com/cory-johannsen/pong/internal/testutil"
)

const readTimeout = 2 * time.Second

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Host:            "127.0.0.1",
		Port:            0,
		Path:            "/ws",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    time.Second,
		SendBuffer:      64,
		AllowedOrigins:  []string{"*"},
		ShutdownTimeout: 2 * time.Second,
	}
}

type rig struct {
	srv       *httptest.Server
	hub       *ws.Hub
	sessions  *session.Manager
	scheduler *gameserver.Scheduler
}

func newRig(t *testing.T, cfg config.WebSocketConfig) *rig {
	t.Helper()
	logger := zaptest.NewLogger(t)
	hub := ws.NewHub(logger)
	sessions := session.NewManager(session.NewStore(), hub, logger)
	dispatcher := gameserver.NewDispatcher(sessions, logger)
	acceptor := ws.NewAcceptor(cfg, hub, dispatcher, logger)

	srv := httptest.NewServer(acceptor.Handler())
	t.Cleanup(srv.Close)

	return &rig{
		srv:       srv,
		hub:       hub,
		sessions:  sessions,
		scheduler: gameserver.NewScheduler(16*time.Millisecond, sessions, hub, pong.NewSeededSource(1), logger),
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAcceptor_FullMatchFlow(t *testing.T) {
	r := newRig(t, testConfig())

	left := testutil.DialWS(t, r.srv, "/ws")
	left.Emit(session.EventJoinGame, "abc")
	assigned := left.ReadUntil(session.EventPlayerAssigned, readTimeout)
	assert.Equal(t, session.Assignment{Side: pong.SideLeft, GameID: "abc"},
		decode[session.Assignment](t, assigned.Data))
	waiting := left.ReadUntil(session.EventWaitingForOpponent, readTimeout)
	assert.Empty(t, waiting.Data)

	right := testutil.DialWS(t, r.srv, "/ws")
	right.Emit(session.EventJoinGame, "abc")
	assert.Equal(t, pong.SideRight,
		decode[session.Assignment](t, right.ReadUntil(session.EventPlayerAssigned, readTimeout).Data).Side)

	for _, c := range []*testutil.WSClient{left, right} {
		start := decode[pong.State](t, c.ReadUntil(session.EventGameStart, readTimeout).Data)
		assert.True(t, start.IsActive)
	}

	left.Emit(session.EventMovePaddle, "up")
	require.Eventually(t, func() bool {
		g, ok := r.sessions.Snapshot("abc")
		return ok && g.LeftPaddle.Y == 145
	}, readTimeout, 5*time.Millisecond)

	r.scheduler.Tick()
	state := decode[pong.State](t, right.ReadUntil(session.EventGameState, readTimeout).Data)
	assert.Equal(t, 145.0, state.LeftPaddle.Y)
	assert.Equal(t, 405.0, state.Ball.X)

	left.Close()
	over := right.ReadUntil(session.EventGameOver, readTimeout)
	assert.Equal(t, session.MsgOpponentDisconnected, decode[string](t, over.Data))

	require.Eventually(t, func() bool {
		return r.sessions.GameCount() == 0
	}, readTimeout, 5*time.Millisecond)
	assert.Empty(t, r.hub.GroupMembers("abc"))
}

func TestAcceptor_ThirdPlayerRejected(t *testing.T) {
	r := newRig(t, testConfig())

	for i := 0; i < 2; i++ {
		c := testutil.DialWS(t, r.srv, "/ws")
		c.Emit(session.EventJoinGame, "abc")
		c.ReadUntil(session.EventPlayerAssigned, readTimeout)
	}

	third := testutil.DialWS(t, r.srv, "/ws")
	third.Emit(session.EventJoinGame, "abc")
	msg := third.ReadUntil(session.EventError, readTimeout)
	assert.Equal(t, session.MsgGameFull, decode[string](t, msg.Data))
}

func TestAcceptor_InvalidGameID(t *testing.T) {
	r := newRig(t, testConfig())

	c := testutil.DialWS(t, r.srv, "/ws")
	c.Emit(session.EventJoinGame, "")
	msg := c.ReadUntil(session.EventError, readTimeout)
	assert.Equal(t, session.MsgInvalidGameID, decode[string](t, msg.Data))
	assert.Equal(t, 0, r.sessions.GameCount())
}

func TestAcceptor_MalformedFrameIgnored(t *testing.T) {
	r := newRig(t, testConfig())

	c := testutil.DialWS(t, r.srv, "/ws")
	c.EmitRaw([]byte(`{not json`))
	c.EmitRaw([]byte(`{"data":"abc"}`))
	c.Emit(session.EventJoinGame, "abc")

	c.ReadUntil(session.EventPlayerAssigned, readTimeout)
	assert.Equal(t, 1, r.sessions.GameCount())
}

func TestAcceptor_RejectsDisallowedOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://good.example"}
	r := newRig(t, cfg)
	url := "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://good.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestAcceptor_Healthz(t *testing.T) {
	r := newRig(t, testConfig())

	resp, err := http.Get(r.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAcceptor_ListenAndStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := ws.NewHub(logger)
	sessions := session.NewManager(session.NewStore(), hub, logger)
	acceptor := ws.NewAcceptor(testConfig(), hub, gameserver.NewDispatcher(sessions, logger), logger)

	done := make(chan error, 1)
	go func() { done <- acceptor.ListenAndServe() }()

	require.Eventually(t, func() bool { return acceptor.Addr() != "" }, readTimeout, 5*time.Millisecond)
	assert.True(t, acceptor.IsRunning())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+acceptor.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ConnCount() == 1 }, readTimeout, 5*time.Millisecond)

	acceptor.Stop()
	assert.False(t, acceptor.IsRunning())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(readTimeout):
		t.Fatal("ListenAndServe did not return after Stop")
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, hub.ConnCount())
}

func TestAcceptor_RefusesUpgradeAfterStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := ws.NewHub(logger)
	sessions := session.NewManager(session.NewStore(), hub, logger)
	acceptor := ws.NewAcceptor(testConfig(), hub, gameserver.NewDispatcher(sessions, logger), logger)

	done := make(chan error, 1)
	go func() { done <- acceptor.ListenAndServe() }()
	require.Eventually(t, func() bool { return acceptor.IsRunning() }, readTimeout, 5*time.Millisecond)

	acceptor.Stop()
	require.NoError(t, <-done)

	srv := httptest.NewServer(acceptor.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, hub.ConnCount())
}
