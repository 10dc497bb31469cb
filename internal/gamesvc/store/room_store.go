package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/serial-liars/internal/gamesvc/identity"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

// Publisher pushes every committed snapshot to subscribers.
type Publisher interface {
	PublishRoom(room *models.Room) error
}

// RoomStore owns the authoritative Room record. Writes are merges without a
// read-modify-write cycle; unless a version is given the last writer wins.
type RoomStore struct {
	backend    Backend
	publisher  Publisher
	ids        *identity.Generator
	deletedTTL time.Duration
	now        func() time.Time
}

func NewRoomStore(backend Backend, publisher Publisher, ids *identity.Generator, deletedTTL time.Duration) *RoomStore {
	return &RoomStore{
		backend:    backend,
		publisher:  publisher,
		ids:        ids,
		deletedTTL: deletedTTL,
		now:        time.Now,
	}
}

func (s *RoomStore) Create(ctx context.Context, host models.Player) (string, error) {
	room := models.NewRoom(s.ids.NewRoomID(), host, s.now())
	room.Version = 1

	if err := s.backend.Insert(ctx, room); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	log.WithFields(log.Fields{"room": room.ID, "host": host.ID}).Info("room created")
	s.publish(room)
	return room.ID, nil
}

// Read returns ErrNotFound for absent and deleted rooms alike.
func (s *RoomStore) Read(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.backend.Find(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if room.Gone() {
		return nil, ErrNotFound
	}
	return room, nil
}

// Write merges u into the record. expectedVersion is AnyVersion for an
// unconditional write.
func (s *RoomStore) Write(ctx context.Context, id string, expectedVersion int64, u models.Update) (*models.Room, error) {
	room, err := s.backend.Update(ctx, id, expectedVersion, u)
	if err != nil {
		return nil, classify(err)
	}
	s.publish(room)
	return room, nil
}

// Delete marks the room deleted and schedules it for expiry.
func (s *RoomStore) Delete(ctx context.Context, id string, expectedVersion int64) (*models.Room, error) {
	return s.Write(ctx, id, expectedVersion, models.Update{
		models.FieldStatus:    models.StatusDeleted,
		models.FieldExpiresAt: s.now().Add(s.deletedTTL),
	})
}

func (s *RoomStore) publish(room *models.Room) {
	if s.publisher == nil {
		return
	}
	// the write is committed; a failed notification must not read as a failed write
	if err := s.publisher.PublishRoom(room); err != nil {
		log.WithFields(log.Fields{"room": room.ID, "version": room.Version}).Errorf("unable to publish room snapshot: %s", err)
	}
}

func classify(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}
