package models

import (
	"time"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusDeleted  Status = "deleted"
)

// Room is the one shared document for a game session. Field names are the
// wire contract every client agrees on.
type Room struct {
	ID               string      `json:"id" bson:"_id"`
	HostID           string      `json:"hostId" bson:"hostId"`
	HostName         string      `json:"hostName" bson:"hostName"`
	HostSerialNumber string      `json:"hostSerialNumber" bson:"hostSerialNumber"`
	Players          []Player    `json:"players" bson:"players"` // join order is turn order
	Status           Status      `json:"status" bson:"status"`
	CurrentBet       *Bet        `json:"currentBet" bson:"currentBet"`
	GameState        *GameState  `json:"gameState" bson:"gameState"`
	Winner           *Winner     `json:"winner" bson:"winner"`
	GameResult       *GameResult `json:"gameResult" bson:"gameResult"`
	CreatedAt        time.Time   `json:"createdAt" bson:"createdAt"`
	Version          int64       `json:"version" bson:"version"`        // bumped on every committed write
	ExpiresAt        *time.Time  `json:"-" bson:"expires_at,omitempty"` // set on delete, reaped by the TTL index
}

type GameState struct {
	CurrentBet         *Bet `json:"currentBet" bson:"currentBet"`
	Round              int  `json:"round" bson:"round"`
	CurrentPlayerIndex int  `json:"currentPlayerIndex" bson:"currentPlayerIndex"`
}

type Winner struct {
	Name   string `json:"name" bson:"name"`
	ID     string `json:"id" bson:"id"`
	Reason string `json:"reason" bson:"reason"`
}

type SerialEntry struct {
	Name   string `json:"name" bson:"name"`
	Serial string `json:"serial" bson:"serial"`
}

type GameResult struct {
	ClaimedCount     int           `json:"claimedCount" bson:"claimedCount"`
	ActualCount      int           `json:"actualCount" bson:"actualCount"`
	TargetDigit      int           `json:"targetDigit" bson:"targetDigit"`
	AllSerialNumbers []SerialEntry `json:"allSerialNumbers" bson:"allSerialNumbers"`
}

// NewRoom builds the initial record for a room hosted by host.
func NewRoom(id string, host Player, now time.Time) *Room {
	host.IsHost = true
	host.JoinedAt = now
	return &Room{
		ID:               id,
		HostID:           host.ID,
		HostName:         host.Name,
		HostSerialNumber: host.SerialNumber,
		Players:          []Player{host},
		Status:           StatusWaiting,
		CreatedAt:        now,
	}
}

// Gone reports whether the room should be treated as absent.
func (r *Room) Gone() bool {
	return r == nil || r.Status == StatusDeleted
}

func (r *Room) PlayerIndex(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) FindPlayer(playerID string) (Player, bool) {
	if i := r.PlayerIndex(playerID); i >= 0 {
		return r.Players[i], true
	}
	return Player{}, false
}

func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// CurrentPlayerIndex is the raw turn index; a room without game state sits at 0.
func (r *Room) CurrentPlayerIndex() int {
	if r.GameState == nil {
		return 0
	}
	return r.GameState.CurrentPlayerIndex
}

// CurrentPlayer returns the player whose turn it is. The index is not repaired
// after a leave, so it may point past the end of the list.
func (r *Room) CurrentPlayer() (Player, bool) {
	i := r.CurrentPlayerIndex()
	if i < 0 || i >= len(r.Players) {
		return Player{}, false
	}
	return r.Players[i], true
}

func (r *Room) Round() int {
	if r.GameState == nil || r.GameState.Round < 1 {
		return 1
	}
	return r.GameState.Round
}

// Serials snapshots every player's serial in room order.
func (r *Room) Serials() []SerialEntry {
	out := make([]SerialEntry, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, SerialEntry{Name: p.Name, Serial: p.SerialNumber})
	}
	return out
}
