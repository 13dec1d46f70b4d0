package speech

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrSessionCancelled is the terminal error when the event sequence ends
// without a Final or Failure event (recognizer torn down mid-session).
var ErrSessionCancelled = errors.New("recognition session cancelled")

// RecognitionError wraps a recognizer failure kind as an error.
type RecognitionError struct {
	Kind ErrorKind
}

func (e *RecognitionError) Error() string { return e.Kind.Message() }

// OutcomeKind discriminates the reducer's terminal value.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNoSpeech
	OutcomeError
)

// Outcome is the single terminal value of one listening session.
type Outcome struct {
	Kind       OutcomeKind
	Text       string
	Alternates []string
	Err        error
}

// Observer receives side-channel updates while the sequence is being reduced.
// All fields are optional.
type Observer struct {
	OnPartial     func(text string)
	OnAudioLevel  func(level float64)
	OnSpeechBegin func()
	OnSpeechEnd   func()
}

// Reducer folds one session's event sequence into a terminal Outcome.
type Reducer struct {
	levels *rate.Limiter
}

// NewReducer constructs a reducer that forwards at most one audio-level update
// per levelEvery. Zero disables throttling.
func NewReducer(levelEvery time.Duration) *Reducer {
	var limiter *rate.Limiter
	if levelEvery > 0 {
		limiter = rate.NewLimiter(rate.Every(levelEvery), 1)
	}
	return &Reducer{levels: limiter}
}

// Reduce consumes events strictly in emission order until a terminal event,
// channel close, or ctx cancellation. Partial and audio-level events are
// forwarded to the observer and never terminate the sequence.
func (r *Reducer) Reduce(ctx context.Context, events <-chan Event, obs Observer) Outcome {
	for {
		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeError, Err: ErrSessionCancelled}
		case evt, ok := <-events:
			if !ok {
				return Outcome{Kind: OutcomeError, Err: ErrSessionCancelled}
			}
			if out, done := r.apply(evt, obs); done {
				return out
			}
		}
	}
}

func (r *Reducer) apply(evt Event, obs Observer) (Outcome, bool) {
	switch e := evt.(type) {
	case Ready:
		// nothing to do until speech starts
	case SpeechBegin:
		if obs.OnSpeechBegin != nil {
			obs.OnSpeechBegin()
		}
	case SpeechEnd:
		if obs.OnSpeechEnd != nil {
			obs.OnSpeechEnd()
		}
	case AudioLevel:
		if obs.OnAudioLevel != nil && (r.levels == nil || r.levels.Allow()) {
			obs.OnAudioLevel(NormalizeLevel(e.DB))
		}
	case Partial:
		if obs.OnPartial != nil {
			obs.OnPartial(e.Text)
		}
	case Final:
		return Outcome{Kind: OutcomeSuccess, Text: e.Text, Alternates: e.Alternates}, true
	case Failure:
		if e.Kind.Silence() {
			return Outcome{Kind: OutcomeNoSpeech}, true
		}
		return Outcome{Kind: OutcomeError, Err: &RecognitionError{Kind: e.Kind}}, true
	}
	return Outcome{}, false
}

// NormalizeLevel maps the engine's RMS dB reading (roughly -2..10) onto 0..1
// for visualization.
func NormalizeLevel(db float64) float64 {
	level := (db + 2) / 12
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
