package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-presence/internal/messages"
	"github.com/Tyrowin/gochat-presence/internal/metrics"
)

type stubMessages struct {
	msgs map[string]*messages.Message
	err  error
}

func newStubMessages() *stubMessages {
	return &stubMessages{msgs: map[string]*messages.Message{
		"m1": {ID: "m1", Text: "hello", UserID: "u1"},
	}}
}

func (s *stubMessages) Create(_ context.Context, userID, text string) (*messages.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	if userID == "" {
		return nil, messages.ErrMissingUser
	}
	if text == "" {
		return nil, messages.ErrInvalidMessage
	}
	msg := &messages.Message{ID: fmt.Sprintf("m%d", len(s.msgs)+1), Text: text, UserID: userID}
	s.msgs[msg.ID] = msg
	return msg, nil
}

func (s *stubMessages) List(context.Context) ([]messages.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]messages.Message, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, *m)
	}
	return out, nil
}

func (s *stubMessages) Get(_ context.Context, id string) (*messages.Message, error) {
	msg, ok := s.msgs[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, messages.ErrMessageNotFound)
	}
	return msg, nil
}

func (s *stubMessages) Update(ctx context.Context, id, text string) (*messages.Message, error) {
	if text == "" {
		return nil, messages.ErrInvalidMessage
	}
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.Text = text
	return msg, nil
}

func (s *stubMessages) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	delete(s.msgs, id)
	return nil
}

func (s *stubMessages) Like(ctx context.Context, id, userID string) (*messages.Message, error) {
	if userID == "" {
		return nil, messages.ErrMissingUser
	}
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.LikesCount++
	return msg, nil
}

func (s *stubMessages) Unlike(ctx context.Context, id, userID string) (*messages.Message, error) {
	if userID == "" {
		return nil, messages.ErrMissingUser
	}
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.LikesCount > 0 {
		msg.LikesCount--
	}
	return msg, nil
}

func newTestRouter(t *testing.T, msgs MessageService, gatherer prometheus.Gatherer) (*Hub, http.Handler) {
	t.Helper()
	hub := startHub(t)
	return hub, SetupRoutes(NewHandlers(hub, msgs, nil), gatherer)
}

func doRequest(t *testing.T, h http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/", http.NoBody)
		rr := httptest.NewRecorder()
		HealthHandler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "GoChat server is running!", rr.Body.String())
		assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	}
}

func TestHealthJSON(t *testing.T) {
	_, router := newTestRouter(t, nil, nil)

	rr := doRequest(t, router, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 0.0, body["connections"])
}

func TestPresenceEndpoint(t *testing.T) {
	hub, router := newTestRouter(t, nil, nil)
	c := attachFake(t, hub)
	register(t, hub, c, "u1", "a@x.com")

	rr := doRequest(t, router, http.MethodGet, "/api/presence", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var users []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0]["userId"])
	assert.Equal(t, "online", users[0]["status"])
}

func TestWebSocketRejectsNonGet(t *testing.T) {
	hub := startHub(t)
	h := NewHandlers(hub, nil, nil)

	rr := httptest.NewRecorder()
	h.WebSocket(rr, httptest.NewRequest(http.MethodPost, "/ws", http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	_, router := newTestRouter(t, nil, nil)
	rr = doRequest(t, router, http.MethodPost, "/ws", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	_, router := newTestRouter(t, nil, nil)
	rr := doRequest(t, router, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMessageRoutesAbsentWithoutStore(t *testing.T) {
	_, router := newTestRouter(t, nil, nil)
	rr := doRequest(t, router, http.MethodGet, "/api/messages", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMessageAPI(t *testing.T) {
	_, router := newTestRouter(t, newStubMessages(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		status int
	}{
		{"list", http.MethodGet, "/api/messages", "", "", http.StatusOK},
		{"create", http.MethodPost, "/api/messages", `{"text":"hi"}`, "u1", http.StatusCreated},
		{"create without user", http.MethodPost, "/api/messages", `{"text":"hi"}`, "", http.StatusUnauthorized},
		{"create empty", http.MethodPost, "/api/messages", `{"text":""}`, "u1", http.StatusBadRequest},
		{"create bad body", http.MethodPost, "/api/messages", `{`, "u1", http.StatusBadRequest},
		{"get", http.MethodGet, "/api/messages/m1", "", "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/messages/nope", "", "", http.StatusNotFound},
		{"update", http.MethodPatch, "/api/messages/m1", `{"text":"edited"}`, "u1", http.StatusOK},
		{"update empty", http.MethodPatch, "/api/messages/m1", `{"text":""}`, "u1", http.StatusBadRequest},
		{"update bad body", http.MethodPatch, "/api/messages/m1", `{`, "u1", http.StatusBadRequest},
		{"update missing", http.MethodPatch, "/api/messages/nope", `{"text":"x"}`, "u1", http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/messages/nope", "", "u1", http.StatusNotFound},
		{"like", http.MethodPost, "/api/messages/m1/like", "", "u2", http.StatusOK},
		{"like missing", http.MethodPost, "/api/messages/nope/like", "", "u2", http.StatusNotFound},
		{"unlike", http.MethodDelete, "/api/messages/m1/like", "", "u2", http.StatusOK},
		{"unlike without user", http.MethodDelete, "/api/messages/m1/like", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, tt.method, tt.path, tt.body, tt.user)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestDeleteMessage(t *testing.T) {
	stub := newStubMessages()
	_, router := newTestRouter(t, stub, nil)

	rr := doRequest(t, router, http.MethodDelete, "/api/messages/m1", "", "u1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.NotContains(t, stub.msgs, "m1")

	rr = doRequest(t, router, http.MethodGet, "/api/messages/m1", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnsupportedMessageMethod(t *testing.T) {
	_, router := newTestRouter(t, newStubMessages(), nil)
	rr := doRequest(t, router, http.MethodPut, "/api/messages/m1", `{"text":"x"}`, "u1")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMessageAPIInternalError(t *testing.T) {
	stub := newStubMessages()
	stub.err = errors.New("disk on fire")
	_, router := newTestRouter(t, stub, nil)

	rr := doRequest(t, router, http.MethodGet, "/api/messages", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk on fire")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	hub := NewHub(WithMetrics(collector))
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	router := SetupRoutes(NewHandlers(hub, nil, nil), reg)

	c := attachFake(t, hub)
	register(t, hub, c, "u1", "a@x.com")
	_, err := hub.Snapshot(context.Background())
	require.NoError(t, err)

	rr := doRequest(t, router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "gochat_connections 1")
	assert.Contains(t, body, `gochat_presence_users{status="online"} 1`)
	assert.Contains(t, body, `gochat_inbound_events_total{event="register"} 1`)
}

func TestTestPageHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	TestPageHandler(rr, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "connectedUsers")
}
