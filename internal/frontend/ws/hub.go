package ws

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownConn is returned when sending to a connection that is not registered.
var ErrUnknownConn = errors.New("unknown connection")

// Hub tracks live connections and their broadcast groups. It implements
// session.Transport; every method is non-blocking and safe for concurrent use.
//
// Hub never calls out to game code while holding its lock, so callers may
// hold their own locks when using it.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*Conn
	groups   map[string]map[string]struct{} // group → connIDs
	memberOf map[string]map[string]struct{} // connID → groups
	logger   *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]*Conn),
		groups:   make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

// unregister removes connID from the hub and every group, then closes its queue.
func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	delete(h.conns, connID)
	for group := range h.memberOf[connID] {
		delete(h.groups[group], connID)
		if len(h.groups[group]) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.memberOf, connID)
	h.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Send delivers event to one connection.
//
// Postcondition: Returns nil once the frame is queued, or the reason it was dropped.
func (h *Hub) Send(connID, event string, data any) error {
	frame, err := Encode(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("sending %s to %s: %w", event, connID, ErrUnknownConn)
	}
	if err := c.Push(frame); err != nil {
		return fmt.Errorf("sending %s to %s: %w", event, connID, err)
	}
	return nil
}

// Broadcast delivers event to every member of group. The payload is encoded once.
//
// Postcondition: Every member with queue space has the frame queued. Returns
// the joined errors of members that dropped it.
func (h *Hub) Broadcast(group, event string, data any) error {
	frame, err := Encode(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var errs []error
	for _, c := range targets {
		if err := c.Push(frame); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("broadcasting %s to %s: %w", event, group, errors.Join(errs...))
	}
	return nil
}

// JoinGroup adds connID to group. Joining twice is a no-op.
func (h *Hub) JoinGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]struct{})
	}
	h.groups[group][connID] = struct{}{}
	if h.memberOf[connID] == nil {
		h.memberOf[connID] = make(map[string]struct{})
	}
	h.memberOf[connID][group] = struct{}{}
}

// DisbandGroup removes every member from group. Connections stay open.
func (h *Hub) DisbandGroup(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.groups[group] {
		delete(h.memberOf[id], group)
		if len(h.memberOf[id]) == 0 {
			delete(h.memberOf, id)
		}
	}
	delete(h.groups, group)
}

// GroupMembers returns the sorted member IDs of group.
func (h *Hub) GroupMembers(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ConnCount returns the number of registered connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection's queue. Each connection then finishes
// its own teardown through its read loop.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	h.logger.Info("closed all connections", zap.Int("count", len(conns)))
}
