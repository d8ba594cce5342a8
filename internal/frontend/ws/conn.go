package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxFrameSize bounds inbound frames. Client events are a short name and a string.
const maxFrameSize = 4096

var (
	// ErrConnClosed is returned when pushing to a closed connection.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a connection's outbound queue is full.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is one client websocket with its outbound frame queue.
// A read goroutine delivers inbound frames and a write goroutine drains the
// queue, so pushing never blocks on the network.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool

	pongWait   time.Duration
	pingPeriod time.Duration
	writeWait  time.Duration
}

// newConn wraps ws with a queue of buffer frames.
//
// Precondition: buffer must be >= 1.
func newConn(id string, ws *websocket.Conn, buffer int, pongWait, pingPeriod, writeWait time.Duration) *Conn {
	return &Conn{
		id:         id,
		ws:         ws,
		send:       make(chan []byte, buffer),
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		writeWait:  writeWait,
	}
}

// Push queues frame for delivery without blocking.
//
// Postcondition: Returns ErrConnClosed after Close, ErrSendBufferFull if the
// queue is full, or nil once the frame is queued.
func (c *Conn) Push(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close closes the outbound queue. The write goroutine flushes queued frames,
// sends a close frame and closes the socket. Safe to call multiple times.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads frames until the peer goes away or stops answering pings,
// passing each to onFrame in arrival order.
//
// Postcondition: Returns the read error that ended the loop.
func (c *Conn) readPump(onFrame func([]byte)) error {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		onFrame(frame)
	}
}

// writePump drains the queue to the socket and pings the peer every pingPeriod.
//
// Postcondition: The socket is closed when writePump returns.
func (c *Conn) writePump() error {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
