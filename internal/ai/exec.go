package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/vibeinventory/partsvoice/internal/inventory"
)

type execResponder struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Prompt     string `json:"prompt"`
	Transcript string `json:"transcript"`
}

type execResponse struct {
	Content string `json:"content"`
}

// NewExecResponder pipes the prompt to an external command as JSON on stdin
// and reads the response text from stdout.
func NewExecResponder(command string) (Responder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ai command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ai command is empty")
	}
	return &execResponder{cmd: args}, nil
}

func (g *execResponder) Respond(ctx context.Context, transcript string, snapshot inventory.Snapshot) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	input, err := json.Marshal(execRequest{
		Prompt:     BuildPrompt(transcript, snapshot),
		Transcript: transcript,
	})
	if err != nil {
		return Result{}, err
	}

	base := g.cmd[0]
	args := append([]string{}, g.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(input)
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ai exec command failed: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return Result{}, fmt.Errorf("decode ai exec response: %w", err)
	}
	return BuildResult(transcript, resp.Content, snapshot), nil
}
