package models

// Wire names of the Room fields a partial update may touch.
const (
	FieldPlayers    = "players"
	FieldStatus     = "status"
	FieldCurrentBet = "currentBet"
	FieldGameState  = "gameState"
	FieldWinner     = "winner"
	FieldGameResult = "gameResult"
	FieldExpiresAt  = "expires_at"
)

// Update is a partial write merged into a Room record. A nil value clears the
// field.
type Update map[string]any
