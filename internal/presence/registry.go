package presence

// Connect adds an anonymous online record for a new transport connection.
// Connection ids are assumed unique per transport; connecting an id that is
// already live replaces its record.
func (s *State) Connect(connectionID string) {
	if connectionID == "" {
		return
	}
	s.byConn.set(connectionID, Record{
		ConnectionID: connectionID,
		LastSeen:     s.now(),
		Status:       StatusOnline,
	})
}

// Disconnect removes a connection. If it carried an identity, the user's
// record becomes offline and keeps its userId and email. Unknown ids are
// ignored. It reports whether a connection was removed.
func (s *State) Disconnect(connectionID string) bool {
	rec, ok := s.byConn.remove(connectionID)
	if !ok {
		return false
	}
	if rec.Registered() {
		offline := rec.touched(s.now())
		offline.Status = StatusOffline
		s.byUser.set(rec.UserID, offline)
	}
	return true
}
