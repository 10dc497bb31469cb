package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/serial-liars/internal/comm"
	"github.com/avvvet/serial-liars/internal/gamesvc/broker"
	"github.com/avvvet/serial-liars/internal/gamesvc/identity"
	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/service"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu      sync.Mutex
	records []*models.RoundRecord
	err     error
}

func (f *fakeLedger) RecordResult(ctx context.Context, rec *models.RoundRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) RoomHistory(ctx context.Context, roomID string, limit int) ([]*models.RoundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.RoundRecord{}
	for _, r := range f.records {
		if r.RoomID == roomID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stats := &models.PlayerStats{PlayerID: playerID}
	for _, r := range f.records {
		for _, id := range r.ParticipantIDs {
			if id == playerID {
				stats.Played++
			}
		}
		if r.WinnerID == playerID {
			stats.Won++
		}
	}
	stats.WinRate = store.WinRate(stats.Won, stats.Played).StringFixed(2)
	return stats, nil
}

type testServer struct {
	*httptest.Server
	h      *Handler
	rooms  *store.RoomStore
	ledger *fakeLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b := broker.NewBroker(broker.NewLocalTransport())
	ids := identity.NewSeeded(5)
	rooms := store.NewRoomStore(store.NewMemoryBackend(), b, ids, time.Hour)
	b.Rooms = rooms

	ledger := &fakeLedger{}
	engine := service.NewEngine(rooms, ids, service.WithResults(ledger))

	h := NewHandler(engine, b, rooms, ledger, "0")
	h.InitAuth("test-secret")

	r := chi.NewRouter()
	h.SetRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, h: h, rooms: rooms, ledger: ledger}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *testServer) get(t *testing.T, path, token string) (int, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var rsp Response
	_ = json.NewDecoder(res.Body).Decode(&rsp)
	return res.StatusCode, rsp
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	m, err := comm.NewMessage(msgType, "", data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(m))
}

// await reads until a message of msgType satisfying match arrives.
func await(t *testing.T, conn *websocket.Conn, msgType string, match func(*comm.WSMessage) bool) *comm.WSMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		m := &comm.WSMessage{}
		require.NoError(t, conn.ReadJSON(m), "waiting for %s", msgType)
		if m.Type == msgType && (match == nil || match(m)) {
			return m
		}
	}
}

func snapshot(t *testing.T, m *comm.WSMessage) comm.SnapshotData {
	t.Helper()
	var data comm.SnapshotData
	require.NoError(t, m.Decode(&data))
	return data
}

func snapshotWhere(t *testing.T, conn *websocket.Conn, pred func(comm.SnapshotData) bool) comm.SnapshotData {
	t.Helper()
	m := await(t, conn, comm.TypeRoomSnapshot, func(m *comm.WSMessage) bool {
		var data comm.SnapshotData
		return m.Decode(&data) == nil && pred(data)
	})
	return snapshot(t, m)
}

func TestGameOverWebsocket(t *testing.T) {
	s := newTestServer(t)
	hostConn, jayConn := s.dial(t), s.dial(t)

	send(t, hostConn, comm.TypeCreateRoom, comm.CreateRoomData{Name: "Host"})
	var host comm.SessionData
	require.NoError(t, await(t, hostConn, comm.TypeSession, nil).Decode(&host))
	assert.True(t, models.ValidSerial(host.SerialNumber))

	first := snapshotWhere(t, hostConn, func(d comm.SnapshotData) bool { return d.Room != nil })
	assert.Equal(t, host.RoomId, first.Room.ID)
	assert.True(t, first.View.IsHost)
	assert.False(t, first.View.CanStart)

	send(t, jayConn, comm.TypeJoinRoom, comm.JoinRoomData{RoomId: host.RoomId, Name: "Jay"})
	var jay comm.SessionData
	require.NoError(t, await(t, jayConn, comm.TypeSession, nil).Decode(&jay))
	assert.Equal(t, host.RoomId, jay.RoomId)

	snapshotWhere(t, hostConn, func(d comm.SnapshotData) bool { return d.View.CanStart })

	send(t, jayConn, comm.TypeStartGame, nil)
	var failure comm.ErrorData
	require.NoError(t, await(t, jayConn, comm.TypeError, nil).Decode(&failure))
	assert.Contains(t, failure.Error, "host")

	send(t, hostConn, comm.TypeStartGame, nil)
	snapshotWhere(t, hostConn, func(d comm.SnapshotData) bool { return d.View.CanPlaceInitialBet })

	send(t, hostConn, comm.TypePlaceBet, comm.BetData{Quantity: 2, Digit: 7})
	onJay := snapshotWhere(t, jayConn, func(d comm.SnapshotData) bool { return d.View.CanMove })
	assert.True(t, onJay.View.IsMyTurn)
	assert.Equal(t, "I bet at least 2 7's", onJay.Room.CurrentBet.BetText)

	send(t, jayConn, comm.TypeChallenge, nil)
	over := snapshotWhere(t, hostConn, func(d comm.SnapshotData) bool { return d.View.GameOver })
	require.NotNil(t, over.Room.GameResult)
	assert.Len(t, over.Room.GameResult.AllSerialNumbers, 2)
	require.NotNil(t, over.Room.Winner)

	require.Eventually(t, func() bool {
		code, rsp := s.get(t, "/v1/rooms/"+host.RoomId+"/history", "")
		records, _ := rsp.Data.([]any)
		return code == http.StatusOK && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	code, rsp := s.get(t, "/v1/players/"+jay.PlayerId+"/stats", "")
	assert.Equal(t, http.StatusOK, code)
	stats := rsp.Data.(map[string]any)
	assert.EqualValues(t, 1, stats["played"])

	send(t, jayConn, comm.TypeLeaveRoom, nil)
	snapshotWhere(t, hostConn, func(d comm.SnapshotData) bool { return d.Room != nil && len(d.Room.Players) == 1 })

	send(t, hostConn, comm.TypeLeaveRoom, nil)
	require.Eventually(t, func() bool {
		code, _ := s.get(t, "/v1/rooms/"+host.RoomId, "")
		return code == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActionWithoutSession(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	send(t, conn, comm.TypeChallenge, nil)
	var failure comm.ErrorData
	require.NoError(t, await(t, conn, comm.TypeError, nil).Decode(&failure))
	assert.Equal(t, errNoSession.Error(), failure.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, await(t, conn, comm.TypeError, nil).Decode(&failure))
	assert.Equal(t, "invalid message format", failure.Error)

	send(t, conn, comm.TypeJoinRoom, comm.JoinRoomData{RoomId: "missing", Name: "Jay"})
	require.NoError(t, await(t, conn, comm.TypeError, nil).Decode(&failure))
	assert.Contains(t, failure.Error, store.ErrNotFound.Error())
}

func TestClosingSocketKeepsPlayerInRoom(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	send(t, conn, comm.TypeCreateRoom, comm.CreateRoomData{Name: "Host", SerialNumber: "QQ12345678"})
	var sess comm.SessionData
	require.NoError(t, await(t, conn, comm.TypeSession, nil).Decode(&sess))
	assert.Equal(t, "QQ12345678", sess.SerialNumber)
	conn.Close()

	require.Eventually(t, func() bool { return s.h.connectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	room, err := s.rooms.Read(context.Background(), sess.RoomId)
	require.NoError(t, err)
	assert.Len(t, room.Players, 1)
}

func TestRoomHandler(t *testing.T) {
	s := newTestServer(t)
	id, err := s.rooms.Create(context.Background(), models.Player{ID: "player_h", Name: "Host", SerialNumber: "AB12345678"})
	require.NoError(t, err)

	code, rsp := s.get(t, "/v1/rooms/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	room := rsp.Data.(map[string]any)
	assert.Equal(t, id, room["id"])
	assert.Equal(t, "waiting", room["status"])

	code, rsp = s.get(t, "/v1/rooms/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, rsp.Error)
}

func TestLedgerErrors(t *testing.T) {
	s := newTestServer(t)
	s.ledger.mu.Lock()
	s.ledger.err = errors.New("pg down")
	s.ledger.mu.Unlock()

	code, _ := s.get(t, "/v1/players/player_x/stats", "")
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = s.get(t, "/v1/rooms/r/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLedgerDisabled(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "0")

	for _, fn := range []http.HandlerFunc{h.HistoryHandler, h.StatsHandler} {
		w := httptest.NewRecorder()
		fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	}
}

func TestHealthRequiresToken(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.get(t, "/v1/health", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	token, err := s.h.ServiceToken(time.Minute)
	require.NoError(t, err)
	code, rsp := s.get(t, "/v1/health", token)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, rsp.Message, "running")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, errorStatus(tt.err))
		})
	}
}
