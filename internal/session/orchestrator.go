// Package session owns the voice-command lifecycle: one listening session at a
// time, reduced to a transcript, classified, and dispatched to the AI backend.
// All observable state is emitted as immutable snapshots on each transition.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/vibeinventory/partsvoice/internal/ai"
	"github.com/vibeinventory/partsvoice/internal/config"
	"github.com/vibeinventory/partsvoice/internal/intent"
	"github.com/vibeinventory/partsvoice/internal/inventory"
	"github.com/vibeinventory/partsvoice/internal/speech"
)

// ErrSessionActive is returned by Start while a session is already live.
var ErrSessionActive = errors.New("a voice session is already active")

// State is the session lifecycle phase.
type State string

const (
	StateIdle           State = "idle"
	StateListening      State = "listening"
	StateTranscribing   State = "transcribing"
	StateAwaitingIntent State = "awaiting_intent"
	StateProcessing     State = "processing"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// live reports whether the state admits no concurrent second session.
func (s State) live() bool {
	switch s {
	case StateListening, StateTranscribing, StateAwaitingIntent, StateProcessing:
		return true
	}
	return false
}

// Snapshot is the immutable observable state of the orchestrator at one
// transition. Response, when set, must be treated as read-only.
type Snapshot struct {
	State      State
	SessionID  string
	Token      uint64
	Transcript string
	Partial    string
	AudioLevel float64
	Response   *ai.Result
	Err        string
}

// SnapshotProvider supplies the read-only inventory copy for one turn.
type SnapshotProvider func(ctx context.Context) (inventory.Snapshot, error)

// Orchestrator coordinates recognizer, classifier, and AI backend for voice
// turns. The monotonically increasing session token guards every asynchronous
// completion: results arriving for a stale token are dropped.
type Orchestrator struct {
	recognizer speech.Recognizer
	responder  ai.Responder // nil when no backend is configured
	snapshots  SnapshotProvider
	reducer    *speech.Reducer
	aiTimeout  time.Duration
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	token         uint64
	current       Snapshot
	sessionCancel context.CancelFunc
	updates       chan Snapshot

	turnsStarted metric.Int64Counter
	turnsFailed  metric.Int64Counter
}

// New constructs an orchestrator. responder may be nil; Start still works, but
// finalized transcripts fail with ai.ErrUnconfigured instead of dispatching.
func New(parent context.Context, cfg config.Config, recognizer speech.Recognizer, responder ai.Responder, snapshots SnapshotProvider, logger *slog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)
	o := &Orchestrator{
		recognizer: recognizer,
		responder:  responder,
		snapshots:  snapshots,
		reducer:    speech.NewReducer(time.Duration(cfg.Recognizer.AudioLevelEveryMS) * time.Millisecond),
		aiTimeout:  time.Duration(cfg.AI.TimeoutMS) * time.Millisecond,
		logger:     logger.With(slog.String("component", "session")),
		ctx:        ctx,
		cancel:     cancel,
		current:    Snapshot{State: StateIdle},
		updates:    make(chan Snapshot, 16),
	}
	o.initMetrics()
	return o
}

func (o *Orchestrator) initMetrics() {
	meter := otel.Meter("github.com/vibeinventory/partsvoice/session")
	var err error
	if o.turnsStarted, err = meter.Int64Counter("voice.turns.started"); err != nil {
		o.logger.Warn("failed to initialize metrics", slogError(err))
	}
	if o.turnsFailed, err = meter.Int64Counter("voice.turns.failed"); err != nil {
		o.logger.Warn("failed to initialize metrics", slogError(err))
	}
}

// Close stops any live session and waits for spawned goroutines.
func (o *Orchestrator) Close() {
	o.Stop()
	o.cancel()
	o.wg.Wait()
}

// Current returns the latest state snapshot.
func (o *Orchestrator) Current() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Updates delivers a snapshot per transition. Publishes never block; when the
// consumer lags, the oldest snapshot is dropped so the latest always wins.
func (o *Orchestrator) Updates() <-chan Snapshot {
	return o.updates
}

// Start begins a new listening session. It fails fast when the recognizer is
// unavailable and rejects a second concurrent session.
func (o *Orchestrator) Start() error {
	if !o.recognizer.Available() {
		return speech.ErrRecognizerUnavailable
	}

	o.mu.Lock()
	if o.current.State.live() {
		o.mu.Unlock()
		return ErrSessionActive
	}
	o.token++
	token := o.token
	sessionID := uuid.NewString()
	sessionCtx, sessionCancel := context.WithCancel(o.ctx)
	o.sessionCancel = sessionCancel
	o.current = Snapshot{State: StateListening, SessionID: sessionID, Token: token}
	o.publishLocked()
	o.mu.Unlock()

	events, err := o.recognizer.Listen(sessionCtx)
	if err != nil {
		sessionCancel()
		o.mu.Lock()
		if o.token == token {
			o.current = Snapshot{State: StateIdle, Token: token}
			o.publishLocked()
		}
		o.mu.Unlock()
		return err
	}

	if o.turnsStarted != nil {
		o.turnsStarted.Add(o.ctx, 1)
	}
	o.logger.Info("listening session started", slog.String("session_id", sessionID))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer sessionCancel()
		o.runSession(sessionCtx, token, events)
	}()
	return nil
}

// Stop cancels the live session, if any, and returns to Idle. Idempotent: a
// stop on an idle orchestrator is a no-op. A dispatched AI call keeps running;
// its result is dropped by the token check when it arrives.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current.State == StateIdle {
		return
	}
	o.token++
	if o.sessionCancel != nil {
		o.sessionCancel()
		o.sessionCancel = nil
	}
	o.current = Snapshot{
		State:      StateIdle,
		Token:      o.token,
		Transcript: o.current.Transcript,
		Response:   o.current.Response,
	}
	o.publishLocked()
}

// ClearResponse discards the turn and returns to Idle. The token bump makes
// sure an AI call still in flight cannot resurrect the cleared turn.
func (o *Orchestrator) ClearResponse() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token++
	if o.sessionCancel != nil {
		o.sessionCancel()
		o.sessionCancel = nil
	}
	o.current = Snapshot{State: StateIdle, Token: o.token}
	o.publishLocked()
}

// SubmitTranscript runs a turn for manually entered text, bypassing the
// recognizer. Empty input is ignored.
func (o *Orchestrator) SubmitTranscript(text string) error {
	if text == "" {
		return nil
	}
	o.mu.Lock()
	if o.current.State.live() {
		o.mu.Unlock()
		return ErrSessionActive
	}
	o.token++
	token := o.token
	o.mu.Unlock()

	o.finishTranscript(token, text, nil)
	return nil
}

func (o *Orchestrator) runSession(ctx context.Context, token uint64, events <-chan speech.Event) {
	observer := speech.Observer{
		OnSpeechBegin: func() {
			o.setIfCurrent(token, func(s *Snapshot) {
				s.State = StateTranscribing
				s.Partial = "Listening..."
			})
		},
		OnSpeechEnd: func() {
			o.setIfCurrent(token, func(s *Snapshot) { s.Partial = "" })
		},
		OnPartial: func(text string) {
			o.setIfCurrent(token, func(s *Snapshot) {
				s.State = StateTranscribing
				s.Partial = text
			})
		},
		OnAudioLevel: func(level float64) {
			o.setIfCurrent(token, func(s *Snapshot) { s.AudioLevel = level })
		},
	}

	outcome := o.reducer.Reduce(ctx, events, observer)

	switch outcome.Kind {
	case speech.OutcomeSuccess:
		o.finishTranscript(token, outcome.Text, outcome.Alternates)
	case speech.OutcomeNoSpeech:
		// nothing was said; silently return to idle
		o.setIfCurrent(token, func(s *Snapshot) {
			*s = Snapshot{State: StateIdle, SessionID: s.SessionID, Token: s.Token}
		})
	case speech.OutcomeError:
		if errors.Is(outcome.Err, speech.ErrSessionCancelled) && ctx.Err() != nil {
			// user-initiated stop; the token has already advanced
			return
		}
		o.failTurn(token, outcome.Err)
	}
}

// finishTranscript runs the classify/dispatch turn for a finalized transcript.
func (o *Orchestrator) finishTranscript(token uint64, transcript string, alternates []string) {
	turnIntent := intent.Classify(transcript)
	o.logger.Info("transcript finalized",
		slog.String("intent", turnIntent.String()),
		slog.Int("alternates", len(alternates)))

	if !o.setIfCurrent(token, func(s *Snapshot) {
		s.State = StateAwaitingIntent
		s.Transcript = transcript
		s.Partial = ""
		s.AudioLevel = 0
	}) {
		return
	}

	if o.responder == nil {
		o.failTurn(token, ai.ErrUnconfigured)
		return
	}

	snapshot, err := o.snapshots(o.ctx)
	if err != nil {
		o.logger.Warn("inventory snapshot failed, continuing with empty inventory", slogError(err))
		snapshot = nil
	}

	if !o.setIfCurrent(token, func(s *Snapshot) { s.State = StateProcessing }) {
		return
	}

	// Exactly one backend call per turn. It is deliberately not tied to the
	// recognizer session context: a user stop must not abort it, the token
	// check below discards a stale result instead.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(o.ctx, o.aiTimeout)
		defer cancel()

		start := time.Now()
		result, err := o.responder.Respond(ctx, transcript, snapshot)
		if err != nil {
			o.failTurn(token, err)
			return
		}
		applied := o.setIfCurrent(token, func(s *Snapshot) {
			s.State = StateCompleted
			s.Response = &result
			s.Err = ""
		})
		if applied {
			o.logger.Info("turn completed",
				slog.String("intent", result.Intent.String()),
				slog.Duration("latency", time.Since(start)))
		} else {
			o.logger.Debug("dropping stale backend result")
		}
	}()
}

func (o *Orchestrator) failTurn(token uint64, err error) {
	if o.turnsFailed != nil {
		o.turnsFailed.Add(o.ctx, 1)
	}
	applied := o.setIfCurrent(token, func(s *Snapshot) {
		s.State = StateFailed
		s.Partial = ""
		s.AudioLevel = 0
		s.Err = err.Error()
	})
	if applied {
		o.logger.Warn("turn failed", slogError(err))
	}
}

// setIfCurrent applies a mutation to the observable state only when token is
// still the live session, then publishes the transition.
func (o *Orchestrator) setIfCurrent(token uint64, apply func(*Snapshot)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.token != token {
		return false
	}
	next := o.current
	apply(&next)
	next.Token = token
	o.current = next
	o.publishLocked()
	return true
}

func (o *Orchestrator) publishLocked() {
	snap := o.current
	for {
		select {
		case o.updates <- snap:
			return
		default:
		}
		select {
		case <-o.updates:
		default:
		}
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
