package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPlayerRoom() *Room {
	now := time.Now()
	r := NewRoom("room1", Player{ID: "h", Name: "Host", SerialNumber: "AB12345678"}, now)
	r.Players = append(r.Players, Player{ID: "j", Name: "Joe", SerialNumber: "CD11111111", JoinedAt: now})
	return r
}

func TestNewRoom(t *testing.T) {
	now := time.Now()
	r := NewRoom("room1", Player{ID: "h", Name: "Host", SerialNumber: "AB12345678"}, now)

	assert.Equal(t, StatusWaiting, r.Status)
	require.Len(t, r.Players, 1)
	assert.True(t, r.Players[0].IsHost)
	assert.Equal(t, "h", r.HostID)
	assert.Equal(t, "Host", r.HostName)
	assert.Equal(t, "AB12345678", r.HostSerialNumber)
	assert.Nil(t, r.GameState)
	assert.Equal(t, now, r.CreatedAt)
}

func TestCurrentPlayerOutOfRange(t *testing.T) {
	r := twoPlayerRoom()
	r.GameState = &GameState{Round: 1, CurrentPlayerIndex: 2}

	_, ok := r.CurrentPlayer()
	assert.False(t, ok)

	r.GameState.CurrentPlayerIndex = 1
	p, ok := r.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, "j", p.ID)
}

func TestViewFor(t *testing.T) {
	r := twoPlayerRoom()

	v := r.ViewFor("h")
	assert.True(t, v.IsHost)
	assert.True(t, v.CanStart)
	assert.False(t, v.CanPlaceInitialBet)

	r.Status = StatusPlaying
	v = r.ViewFor("h")
	assert.False(t, v.CanStart)
	assert.True(t, v.CanPlaceInitialBet)
	assert.False(t, v.CanMove)

	bet := Bet{Quantity: 3, Digit: 4, PlayerID: "h"}
	r.CurrentBet = &bet
	r.GameState = &GameState{CurrentBet: &bet, Round: 1, CurrentPlayerIndex: 1}

	v = r.ViewFor("j")
	assert.True(t, v.IsMyTurn)
	assert.True(t, v.CanMove)
	require.NotNil(t, v.CurrentPlayer)
	assert.Equal(t, "j", v.CurrentPlayer.ID)
	assert.False(t, r.ViewFor("h").CanMove)

	r.Status = StatusDeleted
	assert.Equal(t, View{}, r.ViewFor("j"))
}

func TestCleanName(t *testing.T) {
	name, err := CleanName("  Ann  ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)

	_, err = CleanName("   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = CleanName(strings.Repeat("x", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestValidSerial(t *testing.T) {
	assert.True(t, ValidSerial("AB12345678"))
	assert.False(t, ValidSerial("ab12345678"))
	assert.False(t, ValidSerial("AB1234567"))
	assert.False(t, ValidSerial("A112345678"))
}
