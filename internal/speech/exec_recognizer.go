package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

type execRecognizer struct {
	cmd      []string
	language string
}

// execEvent is the wire form emitted by the external speech command, one JSON
// object per line on stdout.
type execEvent struct {
	Type       string   `json:"type"` // ready, begin, level, partial, end, final, error
	Text       string   `json:"text,omitempty"`
	Alternates []string `json:"alternates,omitempty"`
	Level      float64  `json:"level,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// NewExecRecognizer runs an external speech CLI and adapts its JSON-lines
// output into the event sequence.
func NewExecRecognizer(command, language string) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	return &execRecognizer{cmd: args, language: language}, nil
}

func (r *execRecognizer) Available() bool {
	_, err := exec.LookPath(r.cmd[0])
	return err == nil
}

func (r *execRecognizer) Listen(ctx context.Context) (<-chan Event, error) {
	base := r.cmd[0]
	args := append([]string{}, r.cmd[1:]...)
	if r.language != "" {
		args = append(args, "--language", r.language)
	}

	command := exec.CommandContext(ctx, base, args...)
	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stdout pipe: %w", err)
	}
	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("start recognizer command: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer command.Wait()

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var raw execEvent
			if err := json.Unmarshal(line, &raw); err != nil {
				continue
			}
			evt, terminal := raw.toEvent()
			if evt == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- evt:
			}
			if terminal {
				return
			}
		}
	}()
	return out, nil
}

func (e execEvent) toEvent() (Event, bool) {
	switch e.Type {
	case "ready":
		return Ready{}, false
	case "begin":
		return SpeechBegin{}, false
	case "level":
		return AudioLevel{DB: e.Level}, false
	case "partial":
		return Partial{Text: e.Text}, false
	case "end":
		return SpeechEnd{}, false
	case "final":
		return Final{Text: e.Text, Alternates: e.Alternates}, true
	case "error":
		return Failure{Kind: ErrorKind(e.Error)}, true
	default:
		return nil, false
	}
}
