package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/avvvet/serial-liars/internal/gamesvc/service"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type RoomReader interface {
	Read(ctx context.Context, id string) (*models.Room, error)
}

// Ledger serves the read side of the result ledger.
type Ledger interface {
	RoomHistory(ctx context.Context, roomID string, limit int) ([]*models.RoundRecord, error)
	PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	upgrader  websocket.Upgrader

	engine *service.Engine
	subs   service.Subscriber
	rooms  RoomReader
	ledger Ledger // nil when the ledger is disabled
	port   string

	clients sync.Map // socketId -> *client
}

func NewHandler(engine *service.Engine, subs service.Subscriber, rooms RoomReader, ledger Ledger, port string) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		engine: engine,
		subs:   subs,
		rooms:  rooms,
		ledger: ledger,
		port:   port,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.Errorf("request failed: %s", err)
	}
	h.CreateResponse(w, Response{
		Message: http.StatusText(code),
		Code:    code,
		Error:   err.Error(),
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running at port " + h.port,
		Code:    http.StatusOK,
		Data:    map[string]int{"connections": h.connectionCount()},
	})
}

func (h *Handler) connectionCount() int {
	n := 0
	h.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// RoomHandler returns the room's current snapshot.
func (h *Handler) RoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.Read(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: room})
}

func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.CreateResponse(w, Response{Message: "result ledger disabled", Code: http.StatusServiceUnavailable})
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.CreateResponse(w, Response{Message: "invalid limit", Code: http.StatusBadRequest, Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.ledger.RoomHistory(r.Context(), chi.URLParam(r, "roomID"), limit)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: records})
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.CreateResponse(w, Response{Message: "result ledger disabled", Code: http.StatusServiceUnavailable})
		return
	}

	stats, err := h.ledger.PlayerStats(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: stats})
}
