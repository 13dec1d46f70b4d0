package speech

import (
	"context"
	"time"
)

type mockRecognizer struct {
	script []Event
	delay  time.Duration
}

// NewMockRecognizer replays a scripted event sequence, optionally pacing events
// with a fixed delay. Used in tests and mock mode.
func NewMockRecognizer(script []Event, delay time.Duration) Recognizer {
	return &mockRecognizer{script: script, delay: delay}
}

func (m *mockRecognizer) Available() bool { return true }

func (m *mockRecognizer) Listen(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for _, evt := range m.script {
			if m.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.delay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case out <- evt:
			}
			switch evt.(type) {
			case Final, Failure:
				return
			}
		}
	}()
	return out, nil
}

// UnavailableRecognizer reports no recognition capability. Listen always fails.
type UnavailableRecognizer struct{}

func (UnavailableRecognizer) Available() bool { return false }

func (UnavailableRecognizer) Listen(context.Context) (<-chan Event, error) {
	return nil, ErrRecognizerUnavailable
}
