package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vibeinventory/partsvoice/internal/protocol"
	"github.com/vibeinventory/partsvoice/internal/session"
)

// Publisher mirrors orchestrator snapshots onto bus subjects. Every transition
// goes out as a SessionState message; finalized transcripts and completed
// turns additionally get their own subjects, once per session token.
type Publisher struct {
	client *Client
	prefix string
	log    *slog.Logger

	lastPartial   string
	finalToken    uint64
	responseToken uint64
}

func NewPublisher(client *Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
		log:    client.Logger().With(slog.String("component", "bus-publisher")),
	}
}

// Run consumes snapshots until the channel closes or ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, updates <-chan session.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			p.publish(snap)
		}
	}
}

func (p *Publisher) publish(snap session.Snapshot) {
	now := time.Now().UTC()

	p.send(protocol.SubjectSessionState, protocol.SessionState{
		SessionID:  snap.SessionID,
		State:      string(snap.State),
		Token:      snap.Token,
		Transcript: snap.Transcript,
		Partial:    snap.Partial,
		AudioLevel: snap.AudioLevel,
		Error:      snap.Err,
		Timestamp:  now,
	})

	if snap.Partial != "" && snap.Partial != p.lastPartial {
		p.send(protocol.SubjectTranscriptPartial, protocol.Transcript{
			SessionID: snap.SessionID,
			Text:      snap.Partial,
			Partial:   true,
			Timestamp: now,
		})
	}
	p.lastPartial = snap.Partial

	if snap.State == session.StateAwaitingIntent && snap.Token != p.finalToken {
		p.finalToken = snap.Token
		p.send(protocol.SubjectTranscriptFinal, protocol.Transcript{
			SessionID: snap.SessionID,
			Text:      snap.Transcript,
			Timestamp: now,
		})
	}

	if snap.State == session.StateCompleted && snap.Response != nil && snap.Token != p.responseToken {
		p.responseToken = snap.Token
		msg := protocol.TurnResponse{
			SessionID:    snap.SessionID,
			Transcript:   snap.Response.Transcript,
			Intent:       snap.Response.Intent.String(),
			ResponseText: snap.Response.ResponseText,
			Timestamp:    now,
		}
		for _, item := range snap.Response.RelevantItems {
			msg.RelevantItems = append(msg.RelevantItems, item.ID)
		}
		p.send(protocol.SubjectTurnResponse, msg)
	}
}

func (p *Publisher) send(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn("failed to encode bus message", slog.String("subject", name), slog.String("error", err.Error()))
		return
	}
	subject := protocol.Subject(p.prefix, name)
	if err := p.client.Conn().Publish(subject, data); err != nil {
		p.log.Warn("failed to publish bus message", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
