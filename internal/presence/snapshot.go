package presence

// Snapshot returns the presence of every known user.
//
// Every user index entry is taken first, in user index order. Registered
// connections are then laid over it keyed by userId, in connection order, so
// a live connection always wins over a stale offline record. A key that is
// overwritten keeps its first position. Anonymous connections never appear.
func (s *State) Snapshot() []UserPresence {
	merged := newIndex()
	s.byUser.each(func(r Record) {
		if r.Registered() {
			merged.set(r.UserID, r)
		}
	})
	s.byConn.each(func(r Record) {
		if r.Registered() {
			merged.set(r.UserID, r)
		}
	})

	out := make([]UserPresence, 0, merged.len())
	merged.each(func(r Record) {
		out = append(out, r.userPresence())
	})
	return out
}

// Counts returns how many users the snapshot reports online and offline.
func (s *State) Counts() (online, offline int) {
	for _, p := range s.Snapshot() {
		if p.Status == StatusOnline {
			online++
		} else {
			offline++
		}
	}
	return online, offline
}
