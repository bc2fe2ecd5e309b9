package presence

import "encoding/json"

// Dispatcher applies inbound events to a State and returns the events that
// must be broadcast as a result, in emission order.
type Dispatcher struct {
	state *State
}

// NewDispatcher returns a Dispatcher over a fresh State.
func NewDispatcher(opts ...Option) *Dispatcher {
	return &Dispatcher{state: NewState(opts...)}
}

// State exposes the dispatcher's state for reads on the owning goroutine.
func (d *Dispatcher) State() *State {
	return d.state
}

// Connect handles a new transport connection.
func (d *Dispatcher) Connect(connectionID string) []Event {
	d.state.Connect(connectionID)
	return []Event{d.connectedUsers()}
}

// Disconnect handles a transport going away.
func (d *Dispatcher) Disconnect(connectionID string) []Event {
	d.state.Disconnect(connectionID)
	return []Event{d.connectedUsers()}
}

// Register handles a register event. The snapshot is pushed even when the
// connection was unknown and nothing changed.
func (d *Dispatcher) Register(connectionID string, reg Registration) []Event {
	d.state.Register(connectionID, reg.UserID, reg.Email)
	return []Event{d.connectedUsers()}
}

// Message relays a message activity signal verbatim and refreshes the
// sender's presence. connectionID may be empty when the signal comes from
// outside any connection, such as the message API.
func (d *Dispatcher) Message(connectionID string, payload json.RawMessage) []Event {
	d.state.Activity(connectionID)
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return []Event{
		{Name: EventMessageFromBack, Data: payload},
		d.connectedUsers(),
	}
}

// Like relays a like pulse. It carries only the message id; receivers
// refetch the authoritative count. A like without a message id is dropped.
func (d *Dispatcher) Like(messageID string) []Event {
	if messageID == "" {
		return nil
	}
	return []Event{{Name: EventMessageLiked, Data: messageID}}
}

// Snapshot returns the current connectedUsers payload.
func (d *Dispatcher) Snapshot() []UserPresence {
	return d.state.Snapshot()
}

func (d *Dispatcher) connectedUsers() Event {
	return Event{Name: EventConnectedUsers, Data: d.state.Snapshot()}
}
