package messages

import "errors"

var (
	// ErrMessageNotFound is returned when no live message has the given id.
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidMessage is returned for a message without text.
	ErrInvalidMessage = errors.New("message text is required")
	// ErrMissingUser is returned when an operation has no acting user.
	ErrMissingUser = errors.New("user id is required")
)
