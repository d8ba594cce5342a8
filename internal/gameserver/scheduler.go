package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pong/internal/game/pong"
	"github.com/cory-johannsen/pong/internal/game/session"
)

// Scheduler advances every active game by one physics step per interval and
// publishes the resulting state to the game's group.
//
// Invariant: a tick runs entirely under the session manager's lock, so no
// join, move or leave interleaves with a game's step and broadcast.
type Scheduler struct {
	interval  time.Duration
	sessions  *session.Manager
	transport session.Transport
	rnd       pong.Source
	logger    *zap.Logger
}

// NewScheduler returns a scheduler that ticks every interval.
//
// Precondition: interval must be > 0; sessions, transport, rnd and logger must be non-nil.
func NewScheduler(interval time.Duration, sessions *session.Manager, transport session.Transport, rnd pong.Source, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		panic("gameserver.NewScheduler: interval must be > 0")
	}
	return &Scheduler{
		interval:  interval,
		sessions:  sessions,
		transport: transport,
		rnd:       rnd,
		logger:    logger,
	}
}

// Tick steps every active game once and broadcasts gameState to each.
// A game whose step panics is logged and skipped; the remaining games still advance.
//
// Postcondition: Returns the number of games stepped.
func (s *Scheduler) Tick() int {
	stepped := 0
	s.sessions.ForEachActive(func(gameID string, game *pong.State) {
		if s.stepGame(gameID, game) {
			stepped++
		}
	})
	return stepped
}

func (s *Scheduler) stepGame(gameID string, game *pong.State) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("game step panicked",
				zap.String("game_id", gameID),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	if scorer := pong.Step(game, s.rnd); scorer != "" {
		s.logger.Debug("point scored",
			zap.String("game_id", gameID),
			zap.String("side", string(scorer)),
			zap.Int("left", game.Score.Left),
			zap.Int("right", game.Score.Right),
		)
	}
	if err := s.transport.Broadcast(gameID, session.EventGameState, game); err != nil {
		s.logger.Warn("broadcasting game state",
			zap.String("game_id", gameID),
			zap.Error(err),
		)
	}
	return true
}

// Run ticks until ctx is cancelled. It blocks.
//
// Postcondition: No tick is in progress when Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
