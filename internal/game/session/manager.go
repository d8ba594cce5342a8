package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pong/internal/game/pong"
)

// Manager runs join, move, leave and tick traversal against a Store.
// All methods are safe for concurrent use; each runs to completion under one lock.
type Manager struct {
	mu        sync.Mutex
	store     *Store
	transport Transport
	logger    *zap.Logger
}

// NewManager creates a Manager over store that signals clients through transport.
//
// Precondition: store, transport and logger must be non-nil.
func NewManager(store *Store, transport Transport, logger *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		transport: transport,
		logger:    logger,
	}
}

// Join seats connID in the game gameID, creating the game if needed.
//
// The joiner receives playerAssigned. The first player also receives
// waitingForOpponent; when the second player is seated the game becomes
// active and the whole group receives gameStart. Invalid IDs and full games
// are reported to the joiner with an error event.
//
// Postcondition: Returns the assignment, or an error wrapping
// ErrInvalidIdentifier or ErrSessionFull.
func (m *Manager) Join(connID, gameID string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("join requested",
		zap.String("conn_id", connID),
		zap.String("game_id", gameID),
	)

	game, created, err := m.store.GetOrCreate(gameID)
	if err != nil {
		m.logger.Info("rejecting invalid game id", zap.String("conn_id", connID))
		m.send(connID, EventError, MsgInvalidGameID)
		return Assignment{}, err
	}
	if created {
		m.logger.Info("created game", zap.String("game_id", gameID))
	}

	side, ok := game.Players.FreeSide()
	if !ok {
		m.logger.Info("game is full, rejecting player",
			zap.String("game_id", gameID),
			zap.String("conn_id", connID),
		)
		m.send(connID, EventError, MsgGameFull)
		return Assignment{}, fmt.Errorf("joining %q: %w", gameID, ErrSessionFull)
	}

	if err := m.store.Seat(gameID, side, connID); err != nil {
		return Assignment{}, fmt.Errorf("joining %q: %w", gameID, err)
	}
	m.transport.JoinGroup(connID, gameID)

	assignment := Assignment{Side: side, GameID: gameID}
	m.logger.Info("player assigned",
		zap.String("conn_id", connID),
		zap.String("game_id", gameID),
		zap.String("side", string(side)),
	)
	m.send(connID, EventPlayerAssigned, assignment)

	if game.IsActive {
		m.logger.Info("game full, starting", zap.String("game_id", gameID))
		m.broadcast(gameID, EventGameStart, game)
	} else {
		m.logger.Info("waiting for opponent", zap.String("game_id", gameID))
		m.send(connID, EventWaitingForOpponent, nil)
	}
	return assignment, nil
}

// Leave terminates every game in which connID holds a slot. Each group
// receives gameOver before its game is deleted and the group disbanded.
//
// Postcondition: connID holds no slots. Returns the IDs of terminated games.
func (m *Manager) Leave(connID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []string
	for _, slot := range m.store.SlotsFor(connID) {
		if _, ok := m.store.Get(slot.GameID); !ok {
			// Both slots of one game can belong to connID.
			continue
		}
		m.broadcast(slot.GameID, EventGameOver, MsgOpponentDisconnected)
		m.store.Delete(slot.GameID)
		m.transport.DisbandGroup(slot.GameID)
		ended = append(ended, slot.GameID)
		m.logger.Info("game terminated",
			zap.String("game_id", slot.GameID),
			zap.String("conn_id", connID),
		)
	}
	return ended
}

// Move shifts the paddle connID controls in each active game it plays.
// When connID holds both slots of a game only the left paddle moves.
//
// Postcondition: Returns an error wrapping ErrUnroutableInput when the
// direction is unknown or no active paddle belongs to connID.
func (m *Manager) Move(connID, direction string) error {
	dir, ok := pong.ParseDirection(direction)
	if !ok {
		return fmt.Errorf("direction %q: %w", direction, ErrUnroutableInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	moved := make(map[string]bool)
	for _, slot := range m.store.SlotsFor(connID) {
		if moved[slot.GameID] {
			continue
		}
		game, ok := m.store.Get(slot.GameID)
		if !ok || !game.IsActive {
			continue
		}
		side := slot.Side
		if game.Players.Left == connID {
			side = pong.SideLeft
		}
		game.MovePaddle(side, dir)
		moved[slot.GameID] = true
	}
	if len(moved) == 0 {
		return fmt.Errorf("connection %q: %w", connID, ErrUnroutableInput)
	}
	return nil
}

// ForEachActive calls fn for every active game while holding the manager lock.
// fn may mutate the game and publish it but must not call back into the Manager.
func (m *Manager) ForEachActive(fn func(gameID string, game *pong.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.store.ActiveIDs() {
		game, ok := m.store.Get(id)
		if !ok || !game.IsActive {
			continue
		}
		fn(id, game)
	}
}

// Snapshot returns a copy of the game gameID.
func (m *Manager) Snapshot(gameID string) (pong.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.store.Get(gameID)
	if !ok {
		return pong.State{}, false
	}
	return *g, true
}

// GameCount returns the number of games currently stored.
func (m *Manager) GameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Len()
}

func (m *Manager) send(connID, event string, data any) {
	if err := m.transport.Send(connID, event, data); err != nil {
		m.logger.Warn("send failed",
			zap.String("conn_id", connID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (m *Manager) broadcast(gameID, event string, data any) {
	if err := m.transport.Broadcast(gameID, event, data); err != nil {
		m.logger.Warn("broadcast failed",
			zap.String("game_id", gameID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// IsRejection reports whether err is a join rejection clients are told about.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier) || errors.Is(err, ErrSessionFull)
}
