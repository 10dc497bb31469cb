package models

import "time"

// RoundRecord is one resolved challenge as kept in the result ledger.
type RoundRecord struct {
	ID             int64         `json:"id"`
	RoomID         string        `json:"room_id"`
	Round          int           `json:"round"`
	BettorID       string        `json:"bettor_id"`
	ChallengerID   string        `json:"challenger_id"`
	WinnerID       string        `json:"winner_id"`
	WinnerName     string        `json:"winner_name"`
	Reason         string        `json:"reason"`
	ClaimedCount   int           `json:"claimed_count"`
	ActualCount    int           `json:"actual_count"`
	TargetDigit    int           `json:"target_digit"`
	ParticipantIDs []string      `json:"participant_ids"`
	Serials        []SerialEntry `json:"serials"`
	CreatedAt      time.Time     `json:"created_at"`
}

// PlayerStats aggregates ledger rows for one player id.
type PlayerStats struct {
	PlayerID string `json:"player_id"`
	Played   int64  `json:"played"`
	Won      int64  `json:"won"`
	WinRate  string `json:"win_rate"`
}
