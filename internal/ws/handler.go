// Package ws carries the game's byte protocol over websockets, one binary
// frame per chunk.
package ws

import (
	"net/http"

	"github.com/DoyleJ11/liars-dice/internal/hub"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const readLimit = 1 << 25

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// a Join may carry a name of up to 16MiB
		conn.SetReadLimit(readLimit)

		h.Attach(r.Context(), websocket.NetConn(r.Context(), conn, websocket.MessageBinary))
	}
}
