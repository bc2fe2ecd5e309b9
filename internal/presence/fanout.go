package presence

// Transport is an attached connection that can receive frames.
type Transport interface {
	// ID returns the connection id the transport was registered under.
	ID() string
	// Send queues a frame without blocking and reports whether it was
	// accepted.
	Send(frame []byte) bool
}

// Broadcast encodes ev once and offers it to every transport. A transport
// that rejects the frame does not stop delivery to the rest; the rejected
// transports are returned so the caller can detach them.
func Broadcast(transports []Transport, ev Event) (delivered int, failed []Transport, err error) {
	frame, err := ev.Encode()
	if err != nil {
		return 0, nil, err
	}
	for _, t := range transports {
		if t.Send(frame) {
			delivered++
			continue
		}
		failed = append(failed, t)
	}
	return delivered, failed, nil
}
