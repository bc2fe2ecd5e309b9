package presence

import "time"

// State owns both presence indices. It is not safe for concurrent use; every
// method must run on the goroutine that owns the State.
type State struct {
	byConn *index
	byUser *index
	now    func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithClock replaces the time source used for lastSeen.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// NewState returns an empty State.
func NewState(opts ...Option) *State {
	s := &State{
		byConn: newIndex(),
		byUser: newIndex(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connection returns the record of a live connection.
func (s *State) Connection(connectionID string) (Record, bool) {
	return s.byConn.get(connectionID)
}

// User returns the last known record of a user.
func (s *State) User(userID string) (Record, bool) {
	return s.byUser.get(userID)
}

// Connections returns the number of live connections, registered or not.
func (s *State) Connections() int {
	return s.byConn.len()
}
