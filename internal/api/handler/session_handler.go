package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"spotbroker/internal/app/service"
)

// SessionHandler upgrades client connections and hands them to the broker.
type SessionHandler struct {
	ctx      context.Context // server lifetime, hijacked requests outlive r.Context()
	broker   *service.BrokerService
	upgrader websocket.Upgrader
}

func NewSessionHandler(ctx context.Context, broker *service.BrokerService) *SessionHandler {
	return &SessionHandler{
		ctx:    ctx,
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are scripts, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.serve)
	r.Get("/run", h.serve)
}

func (h *SessionHandler) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: Websocket upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	h.broker.Serve(h.ctx, newWSConn(ws))
}
