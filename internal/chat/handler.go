// Package chat exposes the reply pipeline over HTTP: a server-sent event
// stream on POST /chat and a WebSocket on GET /ws.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nahida-ai/nahida/internal/orchestrator"
	"github.com/nahida-ai/nahida/internal/prompt"
)

const maxRequestBytes = 1 << 20

// Pipeline is implemented by *orchestrator.Orchestrator.
type Pipeline interface {
	Handle(ctx context.Context, message string, history []prompt.HistoryEntry) iter.Seq[orchestrator.Event]
}

// Request is the body of POST /chat and of each WebSocket text message.
type Request struct {
	Message string         `json:"message"`
	History prompt.History `json:"history"`
}

type Handler struct {
	pipeline Pipeline
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex
}

// NewHandler creates a Handler. allowedOrigins governs WebSocket upgrades;
// empty or containing "*" accepts any origin.
func NewHandler(pipeline Pipeline, allowedOrigins []string) *Handler {
	return &Handler{
		pipeline: pipeline,
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// Stream serves POST /chat. The status is always 200; failures are reported
// in-band as an error event so every response honours the event contract.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)

	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		_ = writeEvent(w, rc, orchestrator.Failure(err.Error()))
		return
	}

	for event := range h.pipeline.Handle(r.Context(), req.Message, req.History) {
		if err := writeEvent(w, rc, event); err != nil {
			slog.Debug("event stream closed by client", "error", err)
			return
		}
	}
}

func decodeRequest(body io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func writeEvent(w io.Writer, rc *http.ResponseController, event orchestrator.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

// Socket serves GET /ws. Requests on one connection are handled in order;
// the next message is read only after the previous stream has ended.
func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.track(conn)
	defer h.untrack(conn)

	conn.SetReadLimit(maxRequestBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.WriteJSON(orchestrator.Failure("invalid request body: " + err.Error())); err != nil {
				return
			}
			continue
		}

		for event := range h.pipeline.Handle(r.Context(), req.Message, req.History) {
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("websocket closed mid-stream", "error", err)
				return
			}
		}
	}
}

// Shutdown sends a close frame to every open WebSocket. Hijacked connections
// are not closed by http.Server.Shutdown.
func (h *Handler) Shutdown() {
	h.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clientsMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}

func (h *Handler) track(conn *websocket.Conn) {
	h.clientsMu.Lock()
	h.clients[conn] = struct{}{}
	h.clientsMu.Unlock()
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.clientsMu.Lock()
	delete(h.clients, conn)
	h.clientsMu.Unlock()
	_ = conn.Close()
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
