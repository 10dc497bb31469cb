package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/avvvet/serial-liars/internal/comm"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
	actionTimeout  = 10 * time.Second
)

var errNoSession = errors.New("join or create a room first")

// client is one websocket connection. It holds at most one room session.
type client struct {
	id   string
	conn *websocket.Conn
	h    *Handler

	send      chan *comm.WSMessage
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	session *service.Session
}

// HandleWebSocket upgrades the request and serves game messages on it.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		h:      h,
		send:   make(chan *comm.WSMessage, sendBuffer),
		closed: make(chan struct{}),
	}
	h.clients.Store(c.id, c)

	log.Infof("New WebSocket connection established: %s", c.id)

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	// Closing the socket ends the session but does not leave the room.
	defer func() {
		log.Infof("Closing WebSocket connection: %s", c.id)
		c.h.clients.Delete(c.id)
		c.stop()
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", c.id, err)
			} else {
				log.Infof("WebSocket connection closed for socket: %s", c.id)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", c.id, err)
			c.sendError(errors.New("invalid message format"))
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", c.id, message.Type)

		if err := c.dispatch(message); err != nil {
			c.sendError(err)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.stop()
		c.conn.Close()
	}()

	for {
		select {
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				log.Errorf("Failed to write to socket %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// stop releases anyone blocked on send once either pump has exited.
func (c *client) stop() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *client) dispatch(m *comm.WSMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch m.Type {
	case comm.TypeCreateRoom:
		var data comm.CreateRoomData
		if err := m.Decode(&data); err != nil {
			return err
		}
		roomID, host, err := c.h.engine.Players().CreateRoom(ctx, data.Name, data.SerialNumber)
		if err != nil {
			return err
		}
		return c.attach(ctx, roomID, host)

	case comm.TypeJoinRoom:
		var data comm.JoinRoomData
		if err := m.Decode(&data); err != nil {
			return err
		}
		p, err := c.h.engine.Players().Join(ctx, data.RoomId, data.PlayerId, data.Name)
		if err != nil {
			return err
		}
		return c.attach(ctx, data.RoomId, p)

	case comm.TypeStartGame:
		return c.withSession(func(s *service.Session) error { return s.StartGame(ctx) })

	case comm.TypePlaceBet, comm.TypeRaiseBet:
		var data comm.BetData
		if err := m.Decode(&data); err != nil {
			return err
		}
		return c.withSession(func(s *service.Session) error {
			if m.Type == comm.TypePlaceBet {
				return s.PlaceInitialBet(ctx, data.Quantity, data.Digit)
			}
			return s.RaiseBet(ctx, data.Quantity, data.Digit)
		})

	case comm.TypeChallenge:
		return c.withSession(func(s *service.Session) error { return s.Challenge(ctx) })

	case comm.TypePlayAgain:
		return c.withSession(func(s *service.Session) error { return s.PlayAgain(ctx) })

	case comm.TypeLeaveRoom:
		if err := c.withSession(func(s *service.Session) error { return s.Leave(ctx) }); err != nil {
			return err
		}
		c.detach()
		return nil

	default:
		log.Warnf("unknown event received: %s", m.Type)
		return errors.New("unknown message type " + m.Type)
	}
}

// attach replaces the socket's session with one for roomID as p.
func (c *client) attach(ctx context.Context, roomID string, p models.Player) error {
	c.detach()

	c.push(comm.TypeSession, comm.SessionData{
		RoomId:       roomID,
		PlayerId:     p.ID,
		SerialNumber: p.SerialNumber,
	})

	s, err := c.h.engine.Attach(ctx, c.h.subs, roomID, p.ID, func(room *models.Room, view models.View) {
		c.push(comm.TypeRoomSnapshot, comm.SnapshotData{Room: room, View: view})
	})
	if err != nil {
		return err
	}
	if err := s.WaitReady(ctx); err != nil {
		_ = s.Close()
		return err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

func (c *client) detach() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.Warnf("closing session for room %s: %s", s.RoomID, err)
	}
}

func (c *client) withSession(fn func(s *service.Session) error) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return errNoSession
	}
	return fn(s)
}

func (c *client) push(msgType string, data any) {
	m, err := comm.NewMessage(msgType, c.id, data)
	if err != nil {
		log.Errorf("unable to build %s message: %s", msgType, err)
		return
	}

	select {
	case c.send <- m:
	case <-c.closed:
	}
}

func (c *client) sendError(err error) {
	if errorStatus(err) == http.StatusInternalServerError {
		log.Errorf("socket %s: %s", c.id, err)
	}
	c.push(comm.TypeError, comm.ErrorData{Error: err.Error()})
}
