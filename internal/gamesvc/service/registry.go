package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/serial-liars/internal/gamesvc/identity"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

// Registry manages membership of a room: hosting, joining and leaving.
type Registry struct {
	rooms      Rooms
	ids        *identity.Generator
	optimistic bool
	now        func() time.Time
}

// CreateRoom hosts a new room. serial may be empty, in which case one is
// dealt; a supplied serial must have the 2-letter + 8-digit form.
func (r *Registry) CreateRoom(ctx context.Context, name, serial string) (string, models.Player, error) {
	name, err := models.CleanName(name)
	if err != nil {
		return "", models.Player{}, invalidInput(err)
	}
	if serial == "" {
		serial = r.ids.NewSerialNumber()
	} else if !models.ValidSerial(serial) {
		return "", models.Player{}, invalidInput(fmt.Errorf("%w: %q", models.ErrInvalidSerial, serial))
	}

	host := models.Player{
		ID:           r.ids.NewPlayerID(),
		Name:         name,
		SerialNumber: serial,
		IsHost:       true,
		JoinedAt:     r.now(),
	}

	roomID, err := r.rooms.Create(ctx, host)
	if err != nil {
		return "", models.Player{}, err
	}
	return roomID, host, nil
}

// Join adds a player to roomID, reading the room fresh from the store. A
// player already present is returned unchanged without a write. An empty
// playerID gets a generated one.
func (r *Registry) Join(ctx context.Context, roomID, playerID, name string) (models.Player, error) {
	name, err := models.CleanName(name)
	if err != nil {
		return models.Player{}, invalidInput(err)
	}

	room, err := r.rooms.Read(ctx, roomID)
	if err != nil {
		return models.Player{}, err
	}

	if playerID != "" {
		if existing, ok := room.FindPlayer(playerID); ok {
			return existing, nil
		}
	} else {
		playerID = r.ids.NewPlayerID()
	}

	p := models.Player{
		ID:           playerID,
		Name:         name,
		SerialNumber: r.ids.NewSerialNumber(),
		JoinedAt:     r.now(),
	}

	players := make([]models.Player, 0, len(room.Players)+1)
	players = append(players, room.Players...)
	players = append(players, p)

	_, err = r.rooms.Write(ctx, roomID, expectedVersion(r.optimistic, room), models.Update{
		models.FieldPlayers: players,
	})
	if err != nil {
		return models.Player{}, err
	}

	log.WithFields(log.Fields{"room": roomID, "player": p.ID}).Info("player joined")
	return p, nil
}

// Leave removes playerID from the snapshot's player list. The last player out
// deletes the room. Host role and turn index are not repaired.
func (r *Registry) Leave(ctx context.Context, snap *models.Room, playerID string) error {
	if snap.Gone() {
		return store.ErrNotFound
	}
	if snap.PlayerIndex(playerID) < 0 {
		return invalid("player %s is not in room %s", playerID, snap.ID)
	}

	remaining := make([]models.Player, 0, len(snap.Players)-1)
	for _, p := range snap.Players {
		if p.ID != playerID {
			remaining = append(remaining, p)
		}
	}

	version := expectedVersion(r.optimistic, snap)
	if len(remaining) == 0 {
		if _, err := r.rooms.Delete(ctx, snap.ID, version); err != nil {
			return err
		}
		log.WithField("room", snap.ID).Info("last player left, room deleted")
		return nil
	}

	_, err := r.rooms.Write(ctx, snap.ID, version, models.Update{
		models.FieldPlayers: remaining,
	})
	return err
}
