package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/storefront/internal/events"
	"github.com/yourorg/storefront/internal/security/middleware"
)

// OrderFeedHandler streams order-placed events over a WebSocket. Browsers
// cannot set an Authorization header on a websocket handshake, so the
// bearer token rides in the token query parameter and is run through the
// same auth gate as header credentials.
type OrderFeedHandler struct {
	broadcaster    *events.Broadcaster
	gate           *middleware.AuthGate
	allowedOrigins []string
	logger         *slog.Logger
}

// NewOrderFeedHandler creates a new order feed handler
func NewOrderFeedHandler(
	broadcaster *events.Broadcaster,
	gate *middleware.AuthGate,
	allowedOrigins []string,
	logger *slog.Logger,
) *OrderFeedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderFeedHandler{
		broadcaster:    broadcaster,
		gate:           gate,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *OrderFeedHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/orders?token=...
func (h *OrderFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.gate.Authenticate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub, cancel := h.broadcaster.Subscribe()
	defer cancel()

	h.logger.Info("order feed subscriber connected", slog.String("username", user.Username))

	// Drain client frames so close messages are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			h.logger.Debug("order feed subscriber disconnected", slog.String("username", user.Username))
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, ok := <-sub:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := ws.WriteJSON(ev); err != nil {
				h.logger.Debug("order feed write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
