package toolapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// WSRequest is a tool call sent over the WebSocket.
type WSRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// WSResponse answers a WSRequest with the same ID. Requests sent without an
// ID are answered with a generated one.
type WSResponse struct {
	ID     string   `json:"id"`
	Result Response `json:"result"`
}

// serveWS handles calls one at a time until the peer closes the connection.
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	slog.Info("websocket client connected", "remote", r.RemoteAddr)

	for {
		var req WSRequest
		if err := wsjson.Read(ctx, c, &req); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				slog.Info("websocket client disconnected", "remote", r.RemoteAddr)
			default:
				slog.Warn("websocket read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		result, err := h.dispatcher.Call(ctx, req.Name, req.Arguments)
		if err != nil {
			result = Response{"success": false, "error": err.Error()}
		}
		if err := wsjson.Write(ctx, c, WSResponse{ID: req.ID, Result: result}); err != nil {
			slog.Warn("websocket write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}
