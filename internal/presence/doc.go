// Package presence tracks which users are connected and derives the
// presence snapshot that is pushed to every attached transport.
//
// State holds two indices: one keyed by transport connection id, one keyed
// by user id. The connection index holds every live transport, registered or
// not. The user index holds the last known record of every user that ever
// registered and is never pruned. Dispatcher turns inbound events into state
// changes and a list of outbound events; it performs no I/O, so callers own
// delivery and must serialize calls onto a single goroutine.
package presence
