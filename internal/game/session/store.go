// Package session owns the set of running Pong games: creation on first join,
// side assignment, input routing, and teardown on disconnect.
package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/pong/internal/game/pong"
)

// Slot identifies one occupied player position.
type Slot struct {
	GameID string
	Side   pong.Side
}

// Store maps game IDs to game state and indexes which slots each connection holds.
//
// Store is not safe for concurrent use; Manager serializes all access.
type Store struct {
	games map[string]*pong.State
	slots map[string]map[Slot]struct{} // connID → occupied slots
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		games: make(map[string]*pong.State),
		slots: make(map[string]map[Slot]struct{}),
	}
}

// ValidateID checks that gameID is usable as a game key.
//
// Postcondition: Returns nil iff gameID is non-empty after trimming whitespace.
func ValidateID(gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("game id %q: %w", gameID, ErrInvalidIdentifier)
	}
	return nil
}

// GetOrCreate returns the game for gameID, creating it if absent.
//
// Precondition: gameID must pass ValidateID.
// Postcondition: Returns the game and whether it was just created, or an
// ErrInvalidIdentifier error with no game created.
func (s *Store) GetOrCreate(gameID string) (*pong.State, bool, error) {
	if err := ValidateID(gameID); err != nil {
		return nil, false, err
	}
	if g, ok := s.games[gameID]; ok {
		return g, false, nil
	}
	g := pong.NewState()
	s.games[gameID] = g
	return g, true, nil
}

// Get returns the game for gameID.
func (s *Store) Get(gameID string) (*pong.State, bool) {
	g, ok := s.games[gameID]
	return g, ok
}

// Seat places connID in side's slot of an existing game and indexes it.
//
// Precondition: gameID must exist in the store.
// Postcondition: The game's IsActive reflects whether both slots are now filled.
func (s *Store) Seat(gameID string, side pong.Side, connID string) error {
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("game %q not found", gameID)
	}
	g.Seat(side, connID)
	if s.slots[connID] == nil {
		s.slots[connID] = make(map[Slot]struct{})
	}
	s.slots[connID][Slot{GameID: gameID, Side: side}] = struct{}{}
	return nil
}

// SlotsFor returns the slots connID occupies, ordered by game ID then side.
//
// Postcondition: Returns a slice (may be empty).
func (s *Store) SlotsFor(connID string) []Slot {
	set := s.slots[connID]
	out := make([]Slot, 0, len(set))
	for slot := range set {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].Side < out[j].Side
	})
	return out
}

// Delete removes a game and every index entry pointing at it.
//
// Postcondition: Get(gameID) reports false and no connection holds a slot in it.
func (s *Store) Delete(gameID string) {
	g, ok := s.games[gameID]
	if !ok {
		return
	}
	for _, side := range []pong.Side{pong.SideLeft, pong.SideRight} {
		connID := g.Players.Get(side)
		if connID == "" {
			continue
		}
		if set, ok := s.slots[connID]; ok {
			delete(set, Slot{GameID: gameID, Side: side})
			if len(set) == 0 {
				delete(s.slots, connID)
			}
		}
	}
	delete(s.games, gameID)
}

// ActiveIDs returns the IDs of all active games in sorted order.
func (s *Store) ActiveIDs() []string {
	ids := make([]string, 0, len(s.games))
	for id, g := range s.games {
		if g.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of games in the store.
func (s *Store) Len() int {
	return len(s.games)
}
