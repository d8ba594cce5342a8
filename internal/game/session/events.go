package session

import (
	"errors"

	"github.com/cory-johannsen/pong/internal/game/pong"
)

// Event names exchanged with clients.
const (
	EventJoinGame   = "joinGame"
	EventMovePaddle = "movePaddle"

	EventError              = "error"
	EventPlayerAssigned     = "playerAssigned"
	EventWaitingForOpponent = "waitingForOpponent"
	EventGameStart          = "gameStart"
	EventGameState          = "gameState"
	EventGameOver           = "gameOver"
)

// Client-facing messages.
const (
	MsgInvalidGameID        = "Invalid game ID"
	MsgGameFull             = "Game is full"
	MsgOpponentDisconnected = "Opponent disconnected"
)

var (
	// ErrInvalidIdentifier is returned for an empty or blank game ID.
	ErrInvalidIdentifier = errors.New("invalid game identifier")
	// ErrSessionFull is returned when both slots of a game are taken.
	ErrSessionFull = errors.New("game is full")
	// ErrUnroutableInput is returned when a move does not reach any paddle.
	ErrUnroutableInput = errors.New("input does not control a paddle")
)

// Assignment is the payload of playerAssigned.
type Assignment struct {
	Side   pong.Side `json:"side"`
	GameID string    `json:"gameId"`
}

// Transport delivers messages to connections and connection groups.
// Implementations must not block; a message that cannot be queued is dropped
// and reported through the returned error.
type Transport interface {
	// Send delivers an event to one connection.
	Send(connID, event string, data any) error
	// Broadcast delivers an event to every member of group.
	Broadcast(group, event string, data any) error
	// JoinGroup adds connID to group.
	JoinGroup(connID, group string)
	// DisbandGroup removes every member from group.
	DisbandGroup(group string)
}
