package presence

// Register attaches a user identity to a live connection and records it as
// the user's current presence. Registering an unknown connection is a no-op,
// which covers a register racing a disconnect. Registering again overwrites.
//
// A registration without a userId still refreshes the connection but leaves
// it anonymous, so it stays out of snapshots.
func (s *State) Register(connectionID, userID, email string) bool {
	rec, ok := s.byConn.get(connectionID)
	if !ok {
		return false
	}

	rec = rec.touched(s.now())
	rec.UserID = userID
	rec.Email = email
	rec.Status = StatusOnline

	s.byConn.set(connectionID, rec)
	if rec.Registered() {
		s.byUser.set(userID, rec)
	}
	return true
}

// Activity refreshes lastSeen for a live connection and, when it is
// registered, writes the refreshed record into the user index as well.
func (s *State) Activity(connectionID string) bool {
	rec, ok := s.byConn.get(connectionID)
	if !ok {
		return false
	}

	rec = rec.touched(s.now())
	s.byConn.set(connectionID, rec)
	if rec.Registered() {
		s.byUser.set(rec.UserID, rec)
	}
	return true
}
