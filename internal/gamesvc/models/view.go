package models

// View is the state a participant derives from a snapshot.
type View struct {
	IsHost             bool    `json:"isHost"`
	IsMyTurn           bool    `json:"isMyTurn"`
	CurrentPlayer      *Player `json:"currentPlayer"`
	CanStart           bool    `json:"canStart"`
	CanPlaceInitialBet bool    `json:"canPlaceInitialBet"`
	CanMove            bool    `json:"canMove"`
	GameOver           bool    `json:"gameOver"`
	Round              int     `json:"round"`
}

// ViewFor recomputes derived state for playerID. A gone room yields the zero
// View.
func (r *Room) ViewFor(playerID string) View {
	if r.Gone() {
		return View{}
	}
	v := View{
		IsHost:   r.IsHost(playerID),
		GameOver: r.Status == StatusFinished,
		Round:    r.Round(),
	}
	if cur, ok := r.CurrentPlayer(); ok && r.Status == StatusPlaying {
		v.CurrentPlayer = &cur
		v.IsMyTurn = cur.ID == playerID
	}
	enough := len(r.Players) >= 2
	v.CanStart = v.IsHost && enough && r.Status == StatusWaiting
	v.CanPlaceInitialBet = v.IsHost && enough && r.Status == StatusPlaying && r.CurrentBet == nil
	v.CanMove = v.IsMyTurn && r.Status == StatusPlaying && r.CurrentBet != nil
	return v
}
