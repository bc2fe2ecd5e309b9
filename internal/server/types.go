// Package server defines the wire envelope and utility helpers shared by
// client and hub logic.
package server

import (
	"encoding/json"
	"strings"

	"github.com/Tyrowin/gochat-presence/internal/presence"
)

// Envelope is the JSON frame exchanged over the WebSocket in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// clientEvent is a decoded inbound event queued for the hub.
type clientEvent struct {
	client       *Client
	name         string
	registration presence.Registration
	messageID    string
	payload      json.RawMessage
}

// relayRequest is a relay originating outside any connection.
type relayRequest struct {
	name      string
	messageID string
	payload   json.RawMessage
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
