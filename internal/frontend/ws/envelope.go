// Package ws implements the client transport: websocket connections carrying
// JSON event envelopes, grouped for broadcast by game.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the frame exchanged in both directions: {"event": ..., "data": ...}.
// Data is omitted for events without a payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrMissingEvent is returned by Decode for a frame without an event name.
var ErrMissingEvent = errors.New("envelope has no event")

// Encode builds the wire frame for event with data serialized as JSON.
// A nil data produces a frame without a data member.
//
// Postcondition: Returns a JSON object or an error from encoding data.
func Encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Decode parses a client frame.
//
// Postcondition: Returns an envelope with a non-empty Event, or an error.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}
