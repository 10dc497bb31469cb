package comm

import (
	"encoding/json"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
)

// Client to server message types.
const (
	TypeCreateRoom = "create-room"
	TypeJoinRoom   = "join-room"
	TypeStartGame  = "start-game"
	TypePlaceBet   = "place-bet"
	TypeRaiseBet   = "raise-bet"
	TypeChallenge  = "challenge"
	TypePlayAgain  = "play-again"
	TypeLeaveRoom  = "leave-room"
)

// Server to client message types.
const (
	TypeSession      = "session"
	TypeRoomSnapshot = "room-snapshot"
	TypeError        = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "create-room", "room-snapshot"
	Data     json.RawMessage `json:"data,omitempty"`
	SocketId string          `json:"socketid,omitempty"`
}

type CreateRoomData struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber,omitempty"` // optional, dealt when empty
}

type JoinRoomData struct {
	RoomId   string `json:"roomId"`
	Name     string `json:"name"`
	PlayerId string `json:"playerId,omitempty"` // set when rejoining
}

type BetData struct {
	Quantity int `json:"quantity"`
	Digit    int `json:"digit"`
}

type SessionData struct {
	RoomId       string `json:"roomId"`
	PlayerId     string `json:"playerId"`
	SerialNumber string `json:"serialNumber"`
}

type SnapshotData struct {
	Room *models.Room `json:"room"` // null once the room is deleted
	View models.View  `json:"view"`
}

type ErrorData struct {
	Error string `json:"error"`
}

// NewMessage builds an envelope around data.
func NewMessage(msgType, socketId string, data any) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw, SocketId: socketId}, nil
}

// Decode unmarshals the message data into v.
func (m *WSMessage) Decode(v any) error {
	if len(m.Data) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(m.Data, v)
}
