package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/serial-liars/internal/gamesvc/identity"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

const (
	ReasonChallengeWon  = "Challenge successful"
	ReasonChallengeLost = "Challenge failed"

	recordTimeout = 10 * time.Second
)

// Rooms is the slice of the room store the engine and registry write through.
type Rooms interface {
	Create(ctx context.Context, host models.Player) (string, error)
	Read(ctx context.Context, id string) (*models.Room, error)
	Write(ctx context.Context, id string, expectedVersion int64, u models.Update) (*models.Room, error)
	Delete(ctx context.Context, id string, expectedVersion int64) (*models.Room, error)
}

type ResultRecorder interface {
	RecordResult(ctx context.Context, rec *models.RoundRecord) error
}

// Engine validates every action against the caller's last known snapshot and
// only then issues a single write. It never reads before writing.
type Engine struct {
	rooms      Rooms
	ids        *identity.Generator
	players    *Registry
	results    ResultRecorder
	optimistic bool
	now        func() time.Time
}

type Option func(*Engine)

func WithResults(r ResultRecorder) Option {
	return func(e *Engine) { e.results = r }
}

// WithOptimisticWrites makes every write conditional on the snapshot's
// version, turning silent lost updates into store.ErrConflict.
func WithOptimisticWrites(on bool) Option {
	return func(e *Engine) { e.optimistic = on }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(rooms Rooms, ids *identity.Generator, opts ...Option) *Engine {
	e := &Engine{
		rooms: rooms,
		ids:   ids,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.players = &Registry{rooms: rooms, ids: ids, optimistic: e.optimistic, now: e.now}
	return e
}

// Players is the membership side of the engine.
func (e *Engine) Players() *Registry {
	return e.players
}

func (e *Engine) StartGame(ctx context.Context, snap *models.Room, callerID string) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	if !snap.IsHost(callerID) {
		return invalid("only the host can start the game")
	}
	if snap.Status != models.StatusWaiting {
		return invalid("game is %s, not waiting", snap.Status)
	}
	if len(snap.Players) < 2 {
		return invalid("need at least 2 players, have %d", len(snap.Players))
	}

	return e.write(ctx, snap, models.Update{
		models.FieldStatus: models.StatusPlaying,
	})
}

// PlaceInitialBet opens the bidding. Play continues with the player at index
// 1, right after the host.
func (e *Engine) PlaceInitialBet(ctx context.Context, snap *models.Room, callerID string, quantity, digit int) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	if !snap.IsHost(callerID) {
		return invalid("only the host places the opening bet")
	}
	if snap.Status != models.StatusPlaying {
		return invalid("game is %s, not playing", snap.Status)
	}
	if snap.CurrentBet != nil {
		return invalid("opening bet already placed")
	}
	if len(snap.Players) < 2 {
		return invalid("need at least 2 players, have %d", len(snap.Players))
	}
	host, ok := snap.FindPlayer(callerID)
	if !ok {
		return invalid("host %s is no longer in the room", callerID)
	}

	bet, err := models.NewBet(quantity, digit, host, e.now())
	if err != nil {
		return invalidInput(err)
	}

	return e.write(ctx, snap, models.Update{
		models.FieldCurrentBet: &bet,
		models.FieldGameState: &models.GameState{
			CurrentBet:         &bet,
			Round:              1,
			CurrentPlayerIndex: 1,
		},
	})
}

// RaiseBet replaces the current bet with a strictly higher one and passes
// the turn on.
func (e *Engine) RaiseBet(ctx context.Context, snap *models.Room, callerID string, quantity, digit int) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	cur, err := e.checkTurn(snap, callerID)
	if err != nil {
		return err
	}

	bet, err := models.NewBet(quantity, digit, cur, e.now())
	if err != nil {
		return invalidInput(err)
	}
	if !bet.Beats(*snap.CurrentBet) {
		return invalid("raise to %d x %d must beat %d x %d",
			bet.Quantity, bet.Digit, snap.CurrentBet.Quantity, snap.CurrentBet.Digit)
	}

	nextIndex := (snap.CurrentPlayerIndex() + 1) % len(snap.Players)

	return e.write(ctx, snap, models.Update{
		models.FieldCurrentBet: &bet,
		models.FieldGameState: &models.GameState{
			CurrentBet:         &bet,
			Round:              snap.Round(),
			CurrentPlayerIndex: nextIndex,
		},
	})
}

// Challenge reveals every serial and settles the current bet.
func (e *Engine) Challenge(ctx context.Context, snap *models.Room, callerID string) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	challenger, err := e.checkTurn(snap, callerID)
	if err != nil {
		return err
	}

	bet := *snap.CurrentBet
	result, challengerWins := Resolve(snap.Players, bet)

	winner := models.Winner{Name: bet.PlayerName, ID: bet.PlayerID, Reason: ReasonChallengeLost}
	if challengerWins {
		winner = models.Winner{Name: challenger.Name, ID: challenger.ID, Reason: ReasonChallengeWon}
	}

	err = e.write(ctx, snap, models.Update{
		models.FieldStatus:     models.StatusFinished,
		models.FieldWinner:     &winner,
		models.FieldGameResult: &result,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"room":    snap.ID,
		"winner":  winner.ID,
		"claimed": result.ClaimedCount,
		"actual":  result.ActualCount,
		"digit":   result.TargetDigit,
	}).Info("challenge resolved")

	e.record(ctx, snap, bet, challenger, winner, result)
	return nil
}

// PlayAgain deals fresh serials to everyone and reopens play.
func (e *Engine) PlayAgain(ctx context.Context, snap *models.Room, callerID string) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	if !snap.IsHost(callerID) {
		return invalid("only the host can start a new round")
	}
	if snap.Status != models.StatusFinished {
		return invalid("game is %s, not finished", snap.Status)
	}

	players := make([]models.Player, len(snap.Players))
	for i, p := range snap.Players {
		p.SerialNumber = e.ids.NewSerialNumber()
		players[i] = p
	}

	return e.write(ctx, snap, models.Update{
		models.FieldStatus:     models.StatusPlaying,
		models.FieldPlayers:    players,
		models.FieldCurrentBet: nil,
		models.FieldGameState:  nil,
		models.FieldWinner:     nil,
		models.FieldGameResult: nil,
	})
}

// LeaveRoom removes playerID. The turn index is left as is.
func (e *Engine) LeaveRoom(ctx context.Context, snap *models.Room, playerID string) error {
	return e.players.Leave(ctx, snap, playerID)
}

// Resolve counts the bet's digit across all serials in room order. The
// challenger wins iff the count falls short of the claim.
func Resolve(players []models.Player, bet models.Bet) (models.GameResult, bool) {
	var sb strings.Builder
	serials := make([]models.SerialEntry, 0, len(players))
	for _, p := range players {
		sb.WriteString(p.SerialNumber)
		serials = append(serials, models.SerialEntry{Name: p.Name, Serial: p.SerialNumber})
	}

	actual := strings.Count(sb.String(), strconv.Itoa(bet.Digit))

	return models.GameResult{
		ClaimedCount:     bet.Quantity,
		ActualCount:      actual,
		TargetDigit:      bet.Digit,
		AllSerialNumbers: serials,
	}, actual < bet.Quantity
}

func (e *Engine) checkTurn(snap *models.Room, callerID string) (models.Player, error) {
	if snap.Status != models.StatusPlaying {
		return models.Player{}, invalid("game is %s, not playing", snap.Status)
	}
	if snap.CurrentBet == nil {
		return models.Player{}, invalid("no bet on the table")
	}
	cur, ok := snap.CurrentPlayer()
	if !ok || cur.ID != callerID {
		return models.Player{}, invalid("not your turn")
	}
	return cur, nil
}

func (e *Engine) write(ctx context.Context, snap *models.Room, u models.Update) error {
	_, err := e.rooms.Write(ctx, snap.ID, expectedVersion(e.optimistic, snap), u)
	return err
}

func (e *Engine) record(ctx context.Context, snap *models.Room, bet models.Bet, challenger models.Player, winner models.Winner, result models.GameResult) {
	if e.results == nil {
		return
	}

	ids := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		ids = append(ids, p.ID)
	}

	rec := &models.RoundRecord{
		RoomID:         snap.ID,
		Round:          snap.Round(),
		BettorID:       bet.PlayerID,
		ChallengerID:   challenger.ID,
		WinnerID:       winner.ID,
		WinnerName:     winner.Name,
		Reason:         winner.Reason,
		ClaimedCount:   result.ClaimedCount,
		ActualCount:    result.ActualCount,
		TargetDigit:    result.TargetDigit,
		ParticipantIDs: ids,
		Serials:        result.AllSerialNumbers,
	}

	// the room is already finished; the ledger must not be cut short by the caller going away
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := e.results.RecordResult(rctx, rec); err != nil {
		log.WithField("room", snap.ID).Errorf("unable to record round result: %s", err)
	}
}

func expectedVersion(optimistic bool, snap *models.Room) int64 {
	if optimistic {
		return snap.Version
	}
	return store.AnyVersion
}
