package store

import (
	"context"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
)

// Backend is the persistent document store a RoomStore sits on.
//
// Update merges the fields of u into the record, bumps its version and
// returns the committed record. It fails with ErrNotFound when the record is
// absent or deleted, and with ErrConflict when expectedVersion is not
// AnyVersion and differs from the stored version.
type Backend interface {
	Insert(ctx context.Context, room *models.Room) error
	Find(ctx context.Context, id string) (*models.Room, error)
	Update(ctx context.Context, id string, expectedVersion int64, u models.Update) (*models.Room, error)
}
