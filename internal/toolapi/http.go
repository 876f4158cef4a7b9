package toolapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/learning-tracker/internal/export"
)

const maxBodyBytes = 1 << 20

// HandlerOption configures the HTTP handler.
type HandlerOption func(*handler)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(context.Context) error) HandlerOption {
	return func(h *handler) {
		h.ready = check
	}
}

type handler struct {
	dispatcher *Dispatcher
	ready      func(context.Context) error
}

// NewHandler returns the HTTP surface: tool calls, exports, the WebSocket
// endpoint and health probes.
func NewHandler(d *Dispatcher, opts ...HandlerOption) http.Handler {
	h := &handler{dispatcher: d}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.HandleFunc("GET /tools", h.listTools)
	mux.HandleFunc("POST /tools/{name}", h.callTool)
	mux.HandleFunc("GET /export/progress.xlsx", h.exportWorkbook)
	mux.HandleFunc("GET /export/book.md", h.exportBook)
	mux.HandleFunc("GET /ws", h.serveWS)
	return mux
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			slog.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) listTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.dispatcher.Tools()})
}

func (h *handler) callTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, Response{"success": false, "error": fmt.Sprintf("reading request body: %v", err)})
		return
	}

	resp, err := h.dispatcher.Call(r.Context(), name, body)
	if errors.Is(err, ErrUnknownTool) {
		writeJSON(w, http.StatusNotFound, Response{"success": false, "error": err.Error()})
		return
	}
	slog.Debug("tool called", "tool", name, "success", resp.Success())
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	detail, err := h.dispatcher.tracker.Tutorial(r.Context())
	if !h.checkExport(w, detail != nil, err) {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := export.WriteWorkbook(w, detail); err != nil {
		slog.Error("failed to export workbook", "error", err)
	}
}

func (h *handler) exportBook(w http.ResponseWriter, r *http.Request) {
	detail, err := h.dispatcher.tracker.Tutorial(r.Context())
	if !h.checkExport(w, detail != nil, err) {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if _, err := w.Write(export.Book(detail)); err != nil {
		slog.Debug("failed to write book", "error", err)
	}
}

func (h *handler) checkExport(w http.ResponseWriter, found bool, err error) bool {
	switch {
	case err != nil:
		slog.Error("failed to load tutorial for export", "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{"success": false, "error": err.Error()})
		return false
	case !found:
		writeJSON(w, http.StatusNotFound, Response{"success": false, "error": NoTutorialMessage})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}
