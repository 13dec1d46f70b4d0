package ai

import (
	"context"
	"strings"
	"time"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

type mockResponder struct{}

func NewMockResponder() Responder { return &mockResponder{} }

func (m *mockResponder) Respond(ctx context.Context, transcript string, snapshot inventory.Snapshot) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	text := "[mock response for " + strings.TrimSpace(transcript) + "]"
	return BuildResult(transcript, text, snapshot), nil
}
