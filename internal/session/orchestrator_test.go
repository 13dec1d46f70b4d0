package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vibeinventory/partsvoice/internal/ai"
	"github.com/vibeinventory/partsvoice/internal/config"
	"github.com/vibeinventory/partsvoice/internal/intent"
	"github.com/vibeinventory/partsvoice/internal/inventory"
	"github.com/vibeinventory/partsvoice/internal/speech"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func emptySnapshot(context.Context) (inventory.Snapshot, error) {
	return nil, nil
}

func waitForState(t *testing.T, o *Orchestrator, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.Current()
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %q, current %+v", want, o.Current())
	return Snapshot{}
}

// chanRecognizer hands the test direct control over the event sequence.
type chanRecognizer struct {
	events chan speech.Event
}

func (r *chanRecognizer) Available() bool { return true }

func (r *chanRecognizer) Listen(ctx context.Context) (<-chan speech.Event, error) {
	return r.events, nil
}

// blockingResponder holds the backend call open until released.
type blockingResponder struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingResponder() *blockingResponder {
	return &blockingResponder{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingResponder) Respond(ctx context.Context, transcript string, snapshot inventory.Snapshot) (ai.Result, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return ai.Result{}, ctx.Err()
	}
	return ai.BuildResult(transcript, "late answer", snapshot), nil
}

func TestFullTurnCompletes(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Ready{},
		speech.SpeechBegin{},
		speech.Partial{Text: "add two"},
		speech.Final{Text: "add 2 oil filters"},
	}, 0)

	o := New(context.Background(), config.Default(), recognizer, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := waitForState(t, o, StateCompleted)
	if snap.Transcript != "add 2 oil filters" {
		t.Fatalf("unexpected transcript %q", snap.Transcript)
	}
	if snap.Response == nil || snap.Response.Intent != intent.Add {
		t.Fatalf("unexpected response %+v", snap.Response)
	}
	if snap.Err != "" {
		t.Fatalf("unexpected error %q", snap.Err)
	}
}

func TestStartRejectsConcurrentSession(t *testing.T) {
	recognizer := &chanRecognizer{events: make(chan speech.Event)}
	o := New(context.Background(), config.Default(), recognizer, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Start(); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	o.Stop()
	waitForState(t, o, StateIdle)
	close(recognizer.events)
}

func TestStartFailsFastWhenUnavailable(t *testing.T) {
	o := New(context.Background(), config.Default(), speech.UnavailableRecognizer{}, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); !errors.Is(err, speech.ErrRecognizerUnavailable) {
		t.Fatalf("expected ErrRecognizerUnavailable, got %v", err)
	}
	if snap := o.Current(); snap.State != StateIdle {
		t.Fatalf("expected Idle after rejected start, got %q", snap.State)
	}
}

func TestSilenceReturnsToIdleWithoutError(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Ready{},
		speech.Failure{Kind: speech.ErrNoMatch},
	}, 0)
	o := New(context.Background(), config.Default(), recognizer, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := waitForState(t, o, StateIdle)
	if snap.Err != "" || snap.Transcript != "" {
		t.Fatalf("expected silent return to idle, got %+v", snap)
	}
}

func TestRecognitionFailureSurfacesStableMessage(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Ready{},
		speech.Failure{Kind: speech.ErrNetwork},
	}, 0)
	o := New(context.Background(), config.Default(), recognizer, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := waitForState(t, o, StateFailed)
	if snap.Err != "Network error" {
		t.Fatalf("unexpected error message %q", snap.Err)
	}
}

func TestNilResponderFailsWithoutProcessing(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Final{Text: "find brake pads"},
	}, 0)
	o := New(context.Background(), config.Default(), recognizer, nil, emptySnapshot, testLogger())
	defer o.Close()

	seen := make(map[State]bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range o.Updates() {
			seen[snap.State] = true
			if snap.State == StateFailed {
				return
			}
		}
	}()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := waitForState(t, o, StateFailed)
	<-done
	if snap.Err != ai.ErrUnconfigured.Error() {
		t.Fatalf("unexpected error %q", snap.Err)
	}
	if seen[StateProcessing] {
		t.Fatal("must not enter processing without a responder")
	}
}

func TestStopDiscardsLateBackendResult(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Final{Text: "how many spark plugs"},
	}, 0)
	responder := newBlockingResponder()
	o := New(context.Background(), config.Default(), recognizer, responder, emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, StateProcessing)
	<-responder.started

	o.Stop()
	idle := waitForState(t, o, StateIdle)
	stoppedToken := idle.Token

	close(responder.release)
	time.Sleep(50 * time.Millisecond)

	snap := o.Current()
	if snap.State != StateIdle || snap.Token != stoppedToken {
		t.Fatalf("late result mutated state: %+v", snap)
	}
	if snap.Response != nil {
		t.Fatalf("late result must be dropped, got %+v", snap.Response)
	}
}

func TestClearDiscardsLateBackendResult(t *testing.T) {
	recognizer := speech.NewMockRecognizer([]speech.Event{
		speech.Final{Text: "how many spark plugs"},
	}, 0)
	responder := newBlockingResponder()
	o := New(context.Background(), config.Default(), recognizer, responder, emptySnapshot, testLogger())
	defer o.Close()

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, StateProcessing)
	<-responder.started

	o.ClearResponse()
	cleared := o.Current()
	if cleared.State != StateIdle || cleared.Transcript != "" || cleared.Response != nil {
		t.Fatalf("expected cleared idle state, got %+v", cleared)
	}

	close(responder.release)
	time.Sleep(50 * time.Millisecond)

	snap := o.Current()
	if snap.State != StateIdle || snap.Token != cleared.Token {
		t.Fatalf("late result resurrected cleared turn: %+v", snap)
	}
	if snap.Response != nil {
		t.Fatalf("late result must be dropped, got %+v", snap.Response)
	}
}

func TestStopIsIdempotentWhenIdle(t *testing.T) {
	o := New(context.Background(), config.Default(), speech.UnavailableRecognizer{}, nil, emptySnapshot, testLogger())
	defer o.Close()

	before := o.Current()
	o.Stop()
	o.Stop()
	after := o.Current()
	if before.Token != after.Token || after.State != StateIdle {
		t.Fatalf("stop on idle must be a no-op, got %+v", after)
	}
}

func TestSubmitTranscriptRunsManualTurn(t *testing.T) {
	o := New(context.Background(), config.Default(), speech.UnavailableRecognizer{}, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.SubmitTranscript("delete old gasket"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitForState(t, o, StateCompleted)
	if snap.Transcript != "delete old gasket" {
		t.Fatalf("unexpected transcript %q", snap.Transcript)
	}
	if snap.Response == nil || snap.Response.Intent != intent.Delete {
		t.Fatalf("unexpected response %+v", snap.Response)
	}

	if err := o.SubmitTranscript(""); err != nil {
		t.Fatalf("empty submit must be a no-op, got %v", err)
	}
}

func TestClearResponseResetsTurn(t *testing.T) {
	o := New(context.Background(), config.Default(), speech.UnavailableRecognizer{}, ai.NewMockResponder(), emptySnapshot, testLogger())
	defer o.Close()

	if err := o.SubmitTranscript("find filter"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForState(t, o, StateCompleted)

	o.ClearResponse()
	snap := o.Current()
	if snap.State != StateIdle || snap.Response != nil || snap.Transcript != "" || snap.Err != "" {
		t.Fatalf("expected cleared idle state, got %+v", snap)
	}
}

func TestUpdatesDropOldestWhenConsumerLags(t *testing.T) {
	o := New(context.Background(), config.Default(), speech.UnavailableRecognizer{}, nil, emptySnapshot, testLogger())
	defer o.Close()

	for i := 0; i < 40; i++ {
		o.ClearResponse()
	}

	var last Snapshot
	drained := 0
	for {
		select {
		case snap := <-o.Updates():
			last = snap
			drained++
			continue
		default:
		}
		break
	}
	if drained == 0 || drained > 16 {
		t.Fatalf("expected bounded buffered updates, drained %d", drained)
	}
	if last.State != StateIdle {
		t.Fatalf("expected latest snapshot retained, got %+v", last)
	}
}
