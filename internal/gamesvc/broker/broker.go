package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
)

type RoomReader interface {
	Read(ctx context.Context, id string) (*models.Room, error)
}

// Broker publishes committed room snapshots and hands out subscriptions to
// them. Rooms must be set before Subscribe is used.
type Broker struct {
	transport Transport
	Rooms     RoomReader
}

func NewBroker(t Transport) *Broker {
	return &Broker{transport: t}
}

func Subject(roomID string) string {
	return "room." + roomID
}

func (b *Broker) PublishRoom(room *models.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("unable to marshal room %s: %w", room.ID, err)
	}

	return b.transport.Publish(Subject(room.ID), payload)
}

// Subscribe starts delivery of roomID's snapshots. The first value is the
// current snapshot, or nil if the room is absent; every later committed
// write follows, including the subscriber's own.
func (b *Broker) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	if b.Rooms == nil {
		return nil, errors.New("broker has no room reader")
	}

	s := newSubscription(roomID)

	// subscribe before reading so no write falls between the two
	u, err := b.transport.Subscribe(Subject(roomID), s.receive)
	if err != nil {
		return nil, fmt.Errorf("unable to subscribe to room %s: %w", roomID, err)
	}
	s.unsub = u

	room, err := b.Rooms.Read(ctx, roomID)
	switch {
	case err == nil:
		s.offer(room, true)
	case errors.Is(err, store.ErrNotFound):
		s.offer(nil, true)
	default:
		_ = u.Unsubscribe()
		return nil, err
	}

	go s.pump()
	return s, nil
}
