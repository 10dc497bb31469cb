package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/ws", h.HandleWebSocket)
		r.Get("/rooms/{roomID}", h.RoomHandler)
		r.Get("/rooms/{roomID}/history", h.HistoryHandler)
		r.Get("/players/{playerID}/stats", h.StatsHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

		})
	})
}

func (h *Handler) InitAuth(jwtKey string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	tokenString, err := h.ServiceToken(7 * 24 * time.Hour)
	if err != nil {
		log.Errorf("unable to issue service token: %s", err)
		return
	}

	log.Debugf("DEBUG: JWT for testing expires soon : %s", tokenString)
}

// ServiceToken issues a token accepted by the secure routes.
func (h *Handler) ServiceToken(ttl time.Duration) (string, error) {
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "gamesvc",
		"exp":        time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}
