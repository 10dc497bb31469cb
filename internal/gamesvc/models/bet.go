package models

import (
	"fmt"
	"time"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
	MinDigit    = 0
	MaxDigit    = 9
)

// Bet claims that at least Quantity occurrences of Digit appear across all
// players' serial numbers.
type Bet struct {
	Quantity   int       `json:"quantity" bson:"quantity"`
	Digit      int       `json:"digit" bson:"digit"`
	PlayerID   string    `json:"playerId" bson:"playerId"`
	PlayerName string    `json:"playerName" bson:"playerName"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	BetText    string    `json:"betText" bson:"betText"`
}

func NewBet(quantity, digit int, by Player, now time.Time) (Bet, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return Bet{}, fmt.Errorf("%w: quantity %d outside [%d,%d]", ErrInvalidBet, quantity, MinQuantity, MaxQuantity)
	}
	if digit < MinDigit || digit > MaxDigit {
		return Bet{}, fmt.Errorf("%w: digit %d outside [%d,%d]", ErrInvalidBet, digit, MinDigit, MaxDigit)
	}
	return Bet{
		Quantity:   quantity,
		Digit:      digit,
		PlayerID:   by.ID,
		PlayerName: by.Name,
		Timestamp:  now,
		BetText:    BetText(quantity, digit),
	}, nil
}

// Beats orders bets by quantity, then digit.
func (b Bet) Beats(prev Bet) bool {
	return b.Quantity > prev.Quantity ||
		(b.Quantity == prev.Quantity && b.Digit > prev.Digit)
}

func BetText(quantity, digit int) string {
	if quantity == 1 {
		return fmt.Sprintf("I bet at least %d %d", quantity, digit)
	}
	return fmt.Sprintf("I bet at least %d %d's", quantity, digit)
}
