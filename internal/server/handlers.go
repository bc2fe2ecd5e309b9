// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, presence reads, and the message API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-presence/internal/messages"
)

// UserHeader carries the acting user's id on message API requests. The
// identity provider in front of the server is expected to set it.
const UserHeader = "X-User-Id"

// MessageService is the message store behind the HTTP API.
type MessageService interface {
	Create(ctx context.Context, userID, text string) (*messages.Message, error)
	List(ctx context.Context) ([]messages.Message, error)
	Get(ctx context.Context, id string) (*messages.Message, error)
	Update(ctx context.Context, id, text string) (*messages.Message, error)
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, id, userID string) (*messages.Message, error)
	Unlike(ctx context.Context, id, userID string) (*messages.Message, error)
}

// Handlers serves the HTTP surface of the chat server.
type Handlers struct {
	hub      *Hub
	messages MessageService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandlers creates the handler set. msgs may be nil, in which case the
// message API is not routed.
func NewHandlers(hub *Hub, msgs MessageService, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		hub:      hub,
		messages: msgs,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(logger),
		},
	}
}

// WebSocket upgrades the request and attaches the new client to the hub,
// which starts its pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if err := h.hub.Register(client); err != nil {
		h.logger.Warn("rejecting connection", zap.Error(err))
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

// Health reports liveness and the number of attached connections.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	code := http.StatusOK
	select {
	case <-h.hub.Done():
		status = "stopping"
		code = http.StatusServiceUnavailable
	default:
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"connections": h.hub.ClientCount(),
	})
}

// Presence returns the current connectedUsers snapshot.
func (h *Handlers) Presence(w http.ResponseWriter, r *http.Request) {
	snap, err := h.hub.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type messageRequest struct {
	Text string `json:"text"`
}

// ListMessages returns every message, oldest first.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.List(r.Context())
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	if msgs == nil {
		msgs = []messages.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// CreateMessage stores a message written by the requesting user.
func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messages.Create(r.Context(), userID(r), req.Text)
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// GetMessage returns one message.
func (h *Handlers) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// UpdateMessage replaces a message's text.
func (h *Handlers) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messages.Update(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message.
func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.messages.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleMessageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikeMessage records a like by the requesting user.
func (h *Handlers) LikeMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.Like(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// UnlikeMessage removes the requesting user's like.
func (h *Handlers) UnlikeMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.Unlike(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		h.handleMessageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handlers) handleMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messages.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, messages.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, messages.ErrMissingUser):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error("message request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
