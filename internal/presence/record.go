package presence

import "time"

// Status is the outward presence state of a record.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// TimeFormat renders lastSeen as ISO-8601 UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Record is the presence of one connection, or the last known presence of
// one user when stored in the user index.
type Record struct {
	ConnectionID string
	UserID       string
	Email        string
	LastSeen     time.Time
	Status       Status
}

// Registered reports whether an identity has been attached to the record.
func (r Record) Registered() bool {
	return r.UserID != ""
}

// touched returns a copy with LastSeen moved to now. LastSeen never moves
// backwards, even if the clock does.
func (r Record) touched(now time.Time) Record {
	if now.After(r.LastSeen) {
		r.LastSeen = now
	}
	return r
}

// UserPresence is one entry of a connectedUsers snapshot.
type UserPresence struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	LastSeen string `json:"lastSeen"`
	Status   Status `json:"status"`
}

func (r Record) userPresence() UserPresence {
	return UserPresence{
		UserID:   r.UserID,
		Email:    r.Email,
		LastSeen: r.LastSeen.UTC().Format(TimeFormat),
		Status:   r.Status,
	}
}
