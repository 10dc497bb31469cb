package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
)

// MemoryBackend keeps rooms in process. Merges go through the JSON wire shape
// so partial updates behave like the document store.
type MemoryBackend struct {
	mu    sync.Mutex
	rooms map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rooms: make(map[string][]byte)}
}

func (m *MemoryBackend) Insert(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	m.rooms[room.ID] = data
	return nil
}

func (m *MemoryBackend) Find(ctx context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	data, ok := m.rooms[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRoom(data)
}

func (m *MemoryBackend) Update(ctx context.Context, id string, expectedVersion int64, u models.Update) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc[models.FieldStatus] == string(models.StatusDeleted) {
		return nil, ErrNotFound
	}

	version, _ := doc["version"].(float64)
	if expectedVersion != AnyVersion && int64(version) != expectedVersion {
		return nil, ErrConflict
	}

	for k, v := range u {
		doc[k] = v
	}
	doc["version"] = int64(version) + 1

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	room, err := decodeRoom(merged)
	if err != nil {
		return nil, err
	}

	// re-encode from the typed record so unknown keys do not linger
	enc, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = enc
	return room, nil
}

func decodeRoom(data []byte) (*models.Room, error) {
	room := &models.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, err
	}
	return room, nil
}
