package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/pong/internal/game/pong"
)

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", " ", "\t\n"} {
		err := ValidateID(id)
		require.Error(t, err, "id %q should be invalid", id)
		assert.True(t, errors.Is(err, ErrInvalidIdentifier))
	}
	assert.NoError(t, ValidateID("abc"))
	assert.NoError(t, ValidateID(" abc "))
}

func TestStore_GetOrCreateIdempotent(t *testing.T) {
	s := NewStore()
	g1, created, err := s.GetOrCreate("abc")
	require.NoError(t, err)
	assert.True(t, created)

	g2, created, err := s.GetOrCreate("abc")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, g1, g2)
	assert.Equal(t, 1, s.Len())
}

func TestStore_GetOrCreateInvalidCreatesNothing(t *testing.T) {
	s := NewStore()
	_, _, err := s.GetOrCreate("  ")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SeatIndexesSlot(t *testing.T) {
	s := NewStore()
	_, _, err := s.GetOrCreate("g")
	require.NoError(t, err)

	require.NoError(t, s.Seat("g", pong.SideLeft, "c1"))
	assert.Equal(t, []Slot{{GameID: "g", Side: pong.SideLeft}}, s.SlotsFor("c1"))
	assert.Empty(t, s.ActiveIDs())

	require.NoError(t, s.Seat("g", pong.SideRight, "c2"))
	assert.Equal(t, []string{"g"}, s.ActiveIDs())
}

func TestStore_SeatUnknownGame(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Seat("missing", pong.SideLeft, "c1"))
	assert.Empty(t, s.SlotsFor("c1"))
}

func TestStore_DeleteClearsIndex(t *testing.T) {
	s := NewStore()
	_, _, _ = s.GetOrCreate("g")
	require.NoError(t, s.Seat("g", pong.SideLeft, "c1"))
	require.NoError(t, s.Seat("g", pong.SideRight, "c2"))

	s.Delete("g")

	_, ok := s.Get("g")
	assert.False(t, ok)
	assert.Empty(t, s.SlotsFor("c1"))
	assert.Empty(t, s.SlotsFor("c2"))
	assert.Empty(t, s.ActiveIDs())

	s.Delete("g")
}

func TestStore_SlotsForOrdered(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"b", "a"} {
		_, _, _ = s.GetOrCreate(id)
	}
	require.NoError(t, s.Seat("b", pong.SideLeft, "c1"))
	require.NoError(t, s.Seat("a", pong.SideRight, "c1"))
	require.NoError(t, s.Seat("a", pong.SideLeft, "c1"))

	assert.Equal(t, []Slot{
		{GameID: "a", Side: pong.SideLeft},
		{GameID: "a", Side: pong.SideRight},
		{GameID: "b", Side: pong.SideLeft},
	}, s.SlotsFor("c1"))
}
