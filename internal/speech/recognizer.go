package speech

import (
	"context"
	"errors"
)

// ErrRecognizerUnavailable is returned when no speech engine is present on the
// host.
var ErrRecognizerUnavailable = errors.New("speech recognition not available")

// Recognizer abstracts speech engines.
//
// Listen returns a channel delivering one session's events in emission order.
// The producer closes the channel after a terminal event (Final or Failure) or
// once ctx is cancelled; the consumer must drain until close or cancel.
type Recognizer interface {
	Available() bool
	Listen(ctx context.Context) (<-chan Event, error)
}
