package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/notes/internal/auth"
)

// HandleWebSocket upgrades the request and streams note events for the
// identity in the request context. Callers must be authenticated.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := auth.Current(r.Context())
		if !id.Authenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("websocket connected", "user_id", id.UserID)
		NewClient(hub, conn, id).Run(r.Context())
	}
}
