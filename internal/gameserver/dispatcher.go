package gameserver

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pong/internal/game/session"
)

// Dispatcher routes decoded client events to the session manager.
// It satisfies the websocket acceptor's event handler contract.
type Dispatcher struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher over sessions.
//
// Precondition: sessions and logger must be non-nil.
func NewDispatcher(sessions *session.Manager, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sessions: sessions, logger: logger}
}

// OnConnect records a new connection. Connections hold no slots until they join.
func (d *Dispatcher) OnConnect(connID string) {
	d.logger.Info("client connected", zap.String("conn_id", connID))
}

// OnMessage handles one client event.
//
// A joinGame payload that is not a JSON string is treated as an empty game ID
// and rejected with an error event. movePaddle input that does not control a
// paddle is dropped. Unknown events are ignored.
func (d *Dispatcher) OnMessage(connID, event string, data json.RawMessage) {
	switch event {
	case session.EventJoinGame:
		gameID, _ := decodeString(data)
		if _, err := d.sessions.Join(connID, gameID); err != nil && !session.IsRejection(err) {
			d.logger.Error("join failed",
				zap.String("conn_id", connID),
				zap.Error(err),
			)
		}
	case session.EventMovePaddle:
		direction, err := decodeString(data)
		if err != nil {
			d.logger.Debug("dropping malformed move", zap.String("conn_id", connID), zap.Error(err))
			return
		}
		if err := d.sessions.Move(connID, direction); err != nil {
			if errors.Is(err, session.ErrUnroutableInput) {
				d.logger.Debug("dropping move", zap.String("conn_id", connID), zap.Error(err))
				return
			}
			d.logger.Error("move failed", zap.String("conn_id", connID), zap.Error(err))
		}
	default:
		d.logger.Debug("ignoring unknown event",
			zap.String("conn_id", connID),
			zap.String("event", event),
		)
	}
}

// OnDisconnect terminates every game connID was playing.
func (d *Dispatcher) OnDisconnect(connID string) {
	ended := d.sessions.Leave(connID)
	d.logger.Info("client disconnected",
		zap.String("conn_id", connID),
		zap.Strings("ended_games", ended),
	)
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	if len(data) == 0 {
		return "", errors.New("missing payload")
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s, nil
}
