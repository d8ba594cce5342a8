// Package testutil provides fakes and clients shared by package tests.
package testutil

import (
	"encoding/json"
	"sort"
	"sync"
)

// Message is one recorded delivery.
// Direct sends set To; broadcasts set Group and Recipients.
type Message struct {
	To         string
	Group      string
	Recipients []string
	Event      string
	Data       json.RawMessage
}

// RecordingTransport is an in-memory session transport that records every
// delivery. Payloads are JSON-encoded at delivery time, as the websocket hub does.
type RecordingTransport struct {
	mu       sync.Mutex
	messages []Message
	groups   map[string]map[string]bool
}

// NewRecordingTransport returns an empty RecordingTransport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{groups: make(map[string]map[string]bool)}
}

// Send records a direct delivery.
func (r *RecordingTransport) Send(connID, event string, data any) error {
	raw, err := encode(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{To: connID, Event: event, Data: raw})
	return nil
}

// Broadcast records a delivery to the current members of group.
func (r *RecordingTransport) Broadcast(group, event string, data any) error {
	raw, err := encode(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		Group:      group,
		Recipients: r.membersLocked(group),
		Event:      event,
		Data:       raw,
	})
	return nil
}

// JoinGroup adds connID to group.
func (r *RecordingTransport) JoinGroup(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]bool)
	}
	r.groups[group][connID] = true
}

// DisbandGroup removes every member of group.
func (r *RecordingTransport) DisbandGroup(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, group)
}

// Members returns the sorted members of group.
func (r *RecordingTransport) Members(group string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked(group)
}

// Messages returns a copy of all recorded deliveries in order.
func (r *RecordingTransport) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Received returns every delivery that reached connID, directly or via a group.
func (r *RecordingTransport) Received(connID string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.To == connID {
			out = append(out, m)
			continue
		}
		for _, rcpt := range m.Recipients {
			if rcpt == connID {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Events returns the event names delivered to connID in order.
func (r *RecordingTransport) Events(connID string) []string {
	msgs := r.Received(connID)
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Event)
	}
	return out
}

// Reset discards recorded deliveries but keeps group membership.
func (r *RecordingTransport) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

func (r *RecordingTransport) membersLocked(group string) []string {
	out := make([]string, 0, len(r.groups[group]))
	for id := range r.groups[group] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func encode(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}
