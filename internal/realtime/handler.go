package realtime

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/tudasmester/elira-backend/internal/services"
)

// Handler upgrades HTTP requests to WebSocket connections and registers them
// with the broker.
//
// Classification comes from the handshake: a valid JWT (query param "token"
// or Authorization header) takes precedence and yields the token's identity;
// otherwise the "userId" and "isAdmin" query params classify the connection
// as supplied by the upstream auth proxy. Anything malformed degrades to
// anonymous rather than rejecting the connection.
type Handler struct {
	broker   *Broker
	auth     *services.AuthService
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler for the given broker and auth service.
func NewHandler(broker *Broker, auth *services.AuthService, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}

	return &Handler{
		broker: broker,
		auth:   auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role, userID := h.classify(r)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn := NewConn(ws)
	h.broker.Register(conn, role, userID)

	// Read loop: the client sends nothing meaningful, but reading is what
	// surfaces close and error events. Deregister fires exactly once when
	// the loop exits.
	go func() {
		defer h.broker.Deregister(conn)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// classify derives the connection's role and user id from the handshake.
func (h *Handler) classify(r *http.Request) (Role, string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if token != "" {
		claims, err := h.auth.ValidateToken(token)
		if err == nil {
			if claims.Role == services.RoleAdmin {
				return RoleAdmin, claims.UserID
			}
			return RoleUser, claims.UserID
		}
		slog.Debug("websocket token rejected, falling back to handshake params", slog.Any("error", err))
	}

	userID := r.URL.Query().Get("userId")

	// A malformed isAdmin value parses false, the safe default.
	if isAdmin, err := strconv.ParseBool(r.URL.Query().Get("isAdmin")); err == nil && isAdmin {
		return RoleAdmin, userID
	}

	if userID != "" {
		return RoleUser, userID
	}
	return RoleAnonymous, ""
}
