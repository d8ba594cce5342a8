package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pong/internal/config"
)

// EventHandler receives the events of each websocket connection.
// Calls for one connection are sequential and in arrival order; OnDisconnect
// is always the last call for a connection.
type EventHandler interface {
	OnConnect(connID string)
	OnMessage(connID, event string, data json.RawMessage)
	OnDisconnect(connID string)
}

// Acceptor serves the websocket endpoint over HTTP and feeds each
// connection's events to an EventHandler.
type Acceptor struct {
	cfg      config.WebSocketConfig
	hub      *Hub
	handler  EventHandler
	logger   *zap.Logger
	upgrader websocket.Upgrader

	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewAcceptor creates a websocket acceptor with the given configuration.
//
// Precondition: cfg must have a valid port and path; hub, handler, and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.WebSocketConfig, hub *Hub, handler EventHandler, logger *zap.Logger) *Acceptor {
	a := &Acceptor{
		cfg:     cfg,
		hub:     hub,
		handler: handler,
		logger:  logger,
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	a.server = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

// Handler returns the HTTP routes: the websocket endpoint at cfg.Path and
// a /healthz liveness probe.
func (a *Acceptor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(a.cfg.Path, a.serveWS)
	mux.HandleFunc("/healthz", a.serveHealth)
	return mux
}

func (a *Acceptor) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	a.logger.Info("rejecting origin", zap.String("origin", origin))
	return false
}

func (a *Acceptor) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": a.hub.ConnCount(),
	})
}

// serveWS upgrades the request and runs the connection until it ends.
// Requests arriving once Stop has begun are refused with 503.
func (a *Acceptor) serveWS(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	raw, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	start := time.Now()
	conn := newConn(uuid.NewString(), raw, a.cfg.SendBuffer,
		a.cfg.ReadTimeout, a.cfg.PingPeriod(), a.cfg.WriteTimeout)
	logger := a.logger.With(
		zap.String("conn_id", conn.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	a.hub.register(conn)
	a.mu.Lock()
	if a.stopped {
		// Stop's CloseAll may have run before this registration.
		conn.Close()
	}
	a.mu.Unlock()
	a.handler.OnConnect(conn.id)

	go func() {
		if err := conn.writePump(); err != nil {
			logger.Debug("write loop ended", zap.Error(err))
		}
	}()

	err = conn.readPump(func(frame []byte) {
		env, err := Decode(frame)
		if err != nil {
			logger.Debug("ignoring malformed frame", zap.Error(err))
			return
		}
		a.handler.OnMessage(conn.id, env.Event, env.Data)
	})

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Debug("connection ended unexpectedly", zap.Error(err))
	}

	a.handler.OnDisconnect(conn.id)
	a.hub.unregister(conn.id)
	logger.Info("connection closed", zap.Duration("duration", time.Since(start)))
}

// ListenAndServe listens on cfg.Addr() and serves until Stop is called.
// This method blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", a.cfg.Path),
		zap.Duration("startup", time.Since(start)),
	)

	if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down, closes every connection, and waits up to
// cfg.ShutdownTimeout for connection teardown to finish.
//
// Postcondition: No new connections are accepted.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.stopped = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	a.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("connections still open after shutdown timeout")
	}

	a.logger.Info("websocket acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
