package broker

import (
	"encoding/json"
	"sync"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

// Subscription yields successive immutable snapshots of one room. A nil
// snapshot means the room is absent or deleted. Versions only move forward:
// anything not newer than the last queued snapshot is dropped.
type Subscription struct {
	RoomID string

	out  chan *models.Room
	wake chan struct{}
	done chan struct{}

	mu          sync.Mutex
	queue       []*models.Room
	lastVersion int64
	started     bool
	closed      bool

	unsub    Unsubscriber
	once     sync.Once
	unsubErr error
}

func newSubscription(roomID string) *Subscription {
	return &Subscription{
		RoomID: roomID,
		out:    make(chan *models.Room),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// C is closed after Unsubscribe.
func (s *Subscription) C() <-chan *models.Room {
	return s.out
}

// Unsubscribe stops delivery. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		close(s.done)
		if s.unsub != nil {
			s.unsubErr = s.unsub.Unsubscribe()
		}
	})
	return s.unsubErr
}

func (s *Subscription) receive(data []byte) {
	room := &models.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		log.Errorf("dropping malformed snapshot for room %s: %s", s.RoomID, err)
		return
	}
	s.offer(room, false)
}

// offer queues room. A nil room is only accepted as the initial value.
func (s *Subscription) offer(room *models.Room, initial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if room == nil {
		if !initial || s.started {
			return
		}
	} else {
		if room.Version <= s.lastVersion {
			return
		}
		s.lastVersion = room.Version
	}
	s.started = true

	var snap *models.Room
	if !room.Gone() {
		snap = room
	}
	s.queue = append(s.queue, snap)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
