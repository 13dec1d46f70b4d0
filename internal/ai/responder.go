package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vibeinventory/partsvoice/internal/extract"
	"github.com/vibeinventory/partsvoice/internal/intent"
	"github.com/vibeinventory/partsvoice/internal/inventory"
)

// ErrUnconfigured is returned by the orchestrator when no backend is wired.
var ErrUnconfigured = errors.New("AI backend not configured")

// Result is the structured answer to one voice turn. It lives until the
// response is cleared or a new session starts.
type Result struct {
	Intent          intent.Intent
	Transcript      string
	RelevantItems   []inventory.Item
	ResponseText    string
	SuggestedAction *Action
}

// Action is a write the caller may dispatch against the inventory store. The
// core itself never mutates inventory.
type Action struct {
	Type       string
	Parameters map[string]any
}

// Responder is the generative backend collaborator. One call per turn; retry
// policy, if any, belongs to the caller.
type Responder interface {
	Respond(ctx context.Context, transcript string, snapshot inventory.Snapshot) (Result, error)
}

// BuildResult assembles the locally computed parts of a turn: intent and
// relevant items come from the heuristic classifier regardless of what the
// model said.
func BuildResult(transcript, responseText string, snapshot inventory.Snapshot) Result {
	res := Result{
		Intent:        intent.Classify(transcript),
		Transcript:    transcript,
		RelevantItems: intent.RelevantItems(transcript, snapshot),
		ResponseText:  responseText,
	}
	if res.Intent == intent.Add {
		res.SuggestedAction = suggestAdd(transcript)
	}
	return res
}

// suggestAdd prefills an add-item action from whatever fields the transcript
// carries. Dispatching the write stays with the caller.
func suggestAdd(transcript string) *Action {
	fields := extract.Extract(transcript)
	return &Action{
		Type: "add_item",
		Parameters: map[string]any{
			"name":        fields.Name,
			"part_number": fields.PartNumber,
			"quantity":    fields.Quantity,
			"location":    fields.Location,
			"price":       fields.Price,
			"category":    fields.Category,
		},
	}
}

// contextItems bounds how many records the prompt describes verbatim.
const contextItems = 10

// BuildPrompt renders the instruction the backend receives for one turn.
func BuildPrompt(transcript string, snapshot inventory.Snapshot) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant for a motor-parts inventory management system.\n\n")
	b.WriteString("Current Inventory Summary:\n")
	b.WriteString(inventoryContext(snapshot))
	b.WriteString("\n\nUser Command: \"")
	b.WriteString(transcript)
	b.WriteString("\"\n\n")
	b.WriteString("Analyze the user's command and provide:\n")
	b.WriteString("1. The intent (search, add, update, delete, check_stock, general_query)\n")
	b.WriteString("2. Relevant items from inventory (if applicable)\n")
	b.WriteString("3. A natural language response\n")
	b.WriteString("4. Suggested actions (if any)\n\n")
	b.WriteString("Respond in a concise, helpful manner focused on inventory management.")
	return b.String()
}

func inventoryContext(snapshot inventory.Snapshot) string {
	if len(snapshot) == 0 {
		return "(inventory is empty)"
	}
	limit := len(snapshot)
	if limit > contextItems {
		limit = contextItems
	}
	lines := make([]string, 0, limit+1)
	for _, item := range snapshot[:limit] {
		lines = append(lines, fmt.Sprintf("%s (%s): %d in stock at %s",
			item.Name, item.PartNumber, item.Quantity, item.Location))
	}
	if rest := len(snapshot) - limit; rest > 0 {
		lines = append(lines, fmt.Sprintf("...and %d more items", rest))
	}
	return strings.Join(lines, "\n")
}
