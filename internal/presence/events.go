package presence

import "encoding/json"

// Inbound event names.
const (
	EventRegister     = "register"
	EventMessage      = "message"
	EventMessageLiked = "messageLiked"
)

// Outbound event names.
const (
	EventConnectedUsers  = "connectedUsers"
	EventMessageFromBack = "messageFromBack"
)

// Registration is the payload of a register event.
type Registration struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Like is the payload of an inbound messageLiked event.
type Like struct {
	MessageID string `json:"messageId"`
}

// Event is an outbound event addressed to every attached transport.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Encode renders the event as a wire frame.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
