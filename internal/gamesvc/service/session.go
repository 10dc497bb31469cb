package service

import (
	"context"
	"sync"

	"github.com/avvvet/serial-liars/internal/gamesvc/broker"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
)

type Subscriber interface {
	Subscribe(ctx context.Context, roomID string) (*broker.Subscription, error)
}

// ChangeFunc observes every snapshot a session receives. room is nil once
// the room is gone. It runs on the session goroutine and must not call Close.
type ChangeFunc func(room *models.Room, view models.View)

// Session is one participant's view of a room: the latest snapshot pushed by
// the broker and the game actions bound to the participant's id.
type Session struct {
	RoomID   string
	PlayerID string

	engine   *Engine
	sub      *broker.Subscription
	onChange ChangeFunc

	mu   sync.RWMutex
	snap *models.Room

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

func (e *Engine) Attach(ctx context.Context, subs Subscriber, roomID, playerID string, onChange ChangeFunc) (*Session, error) {
	sub, err := subs.Subscribe(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		RoomID:   roomID,
		PlayerID: playerID,
		engine:   e,
		sub:      sub,
		onChange: onChange,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Session) run() {
	defer close(s.done)

	for room := range s.sub.C() {
		s.mu.Lock()
		s.snap = room
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })

		if s.onChange != nil {
			s.onChange(room, room.ViewFor(s.PlayerID))
		}
	}
}

// WaitReady blocks until the first snapshot has arrived.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Snapshot() *models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Session) View() models.View {
	return s.Snapshot().ViewFor(s.PlayerID)
}

func (s *Session) StartGame(ctx context.Context) error {
	return s.engine.StartGame(ctx, s.Snapshot(), s.PlayerID)
}

func (s *Session) PlaceInitialBet(ctx context.Context, quantity, digit int) error {
	return s.engine.PlaceInitialBet(ctx, s.Snapshot(), s.PlayerID, quantity, digit)
}

func (s *Session) RaiseBet(ctx context.Context, quantity, digit int) error {
	return s.engine.RaiseBet(ctx, s.Snapshot(), s.PlayerID, quantity, digit)
}

func (s *Session) Challenge(ctx context.Context) error {
	return s.engine.Challenge(ctx, s.Snapshot(), s.PlayerID)
}

func (s *Session) PlayAgain(ctx context.Context) error {
	return s.engine.PlayAgain(ctx, s.Snapshot(), s.PlayerID)
}

func (s *Session) Leave(ctx context.Context) error {
	return s.engine.LeaveRoom(ctx, s.Snapshot(), s.PlayerID)
}

// Close stops the subscription and waits for the delivery loop to finish.
// Safe to call more than once.
func (s *Session) Close() error {
	err := s.sub.Unsubscribe()
	<-s.done
	return err
}
