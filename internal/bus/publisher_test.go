package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/vibeinventory/partsvoice/internal/ai"
	"github.com/vibeinventory/partsvoice/internal/config"
	"github.com/vibeinventory/partsvoice/internal/intent"
	"github.com/vibeinventory/partsvoice/internal/protocol"
	"github.com/vibeinventory/partsvoice/internal/session"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startTestServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("create test server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("test server did not start")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func TestPublisherMirrorsSnapshots(t *testing.T) {
	ns := startTestServer(t)

	client, err := Connect(context.Background(), config.BusConfig{
		Servers:        []string{ns.ClientURL()},
		ConnectTimeout: 2000,
	}, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	sub, err := client.Conn().SubscribeSync("partsvoice.>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	updates := make(chan session.Snapshot, 8)
	publisher := NewPublisher(client, "partsvoice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publisher.Run(ctx, updates)

	response := ai.BuildResult("find oil filter", "one in stock", nil)
	updates <- session.Snapshot{State: session.StateListening, SessionID: "s1", Token: 1}
	updates <- session.Snapshot{State: session.StateTranscribing, SessionID: "s1", Token: 1, Partial: "find oil"}
	updates <- session.Snapshot{State: session.StateAwaitingIntent, SessionID: "s1", Token: 1, Transcript: "find oil filter"}
	updates <- session.Snapshot{State: session.StateCompleted, SessionID: "s1", Token: 1, Transcript: "find oil filter", Response: &response}

	subjects := map[string]int{}
	var finalMsg protocol.Transcript
	var turnMsg protocol.TurnResponse
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := sub.NextMsg(200 * time.Millisecond)
		if err != nil {
			if subjects["partsvoice."+protocol.SubjectTurnResponse] > 0 {
				break
			}
			continue
		}
		subjects[msg.Subject]++
		switch msg.Subject {
		case "partsvoice." + protocol.SubjectTranscriptFinal:
			if err := json.Unmarshal(msg.Data, &finalMsg); err != nil {
				t.Fatalf("decode final transcript: %v", err)
			}
		case "partsvoice." + protocol.SubjectTurnResponse:
			if err := json.Unmarshal(msg.Data, &turnMsg); err != nil {
				t.Fatalf("decode turn response: %v", err)
			}
		}
	}

	if got := subjects["partsvoice."+protocol.SubjectSessionState]; got != 4 {
		t.Fatalf("expected 4 state messages, got %d (%v)", got, subjects)
	}
	if got := subjects["partsvoice."+protocol.SubjectTranscriptPartial]; got != 1 {
		t.Fatalf("expected 1 partial transcript, got %d", got)
	}
	if got := subjects["partsvoice."+protocol.SubjectTranscriptFinal]; got != 1 {
		t.Fatalf("expected 1 final transcript, got %d", got)
	}
	if finalMsg.Text != "find oil filter" || finalMsg.Partial {
		t.Fatalf("unexpected final transcript %+v", finalMsg)
	}
	if turnMsg.Intent != intent.Search.String() || turnMsg.ResponseText != "one in stock" {
		t.Fatalf("unexpected turn response %+v", turnMsg)
	}
}

func TestClientHealthy(t *testing.T) {
	ns := startTestServer(t)

	client, err := Connect(context.Background(), config.BusConfig{
		Servers:        []string{ns.ClientURL()},
		ConnectTimeout: 2000,
	}, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !client.Healthy() {
		t.Fatal("expected healthy connection")
	}
	client.Close()

	var nilClient *Client
	if nilClient.Healthy() {
		t.Fatal("nil client must not report healthy")
	}
}
