// Package intent maps finalized transcripts onto coarse inventory actions.
// The classifier is a fixed keyword heuristic, not a model.
package intent

import (
	"strings"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

// Intent is the coarse action category inferred from a transcript.
type Intent string

const (
	Search       Intent = "search"
	Add          Intent = "add"
	Update       Intent = "update"
	Delete       Intent = "delete"
	CheckStock   Intent = "check_stock"
	GeneralQuery Intent = "general_query"
)

func (i Intent) String() string { return string(i) }

// rules are evaluated in order; the first rule with any matching keyword wins.
var rules = []struct {
	intent   Intent
	keywords []string
}{
	{Search, []string{"search", "find", "show"}},
	{Add, []string{"add", "new"}},
	{Update, []string{"update", "change"}},
	{Delete, []string{"delete", "remove"}},
	{CheckStock, []string{"stock", "quantity", "how many"}},
}

// Classify derives the intent of a transcript by case-insensitive substring
// matching. Empty or unrecognized input yields GeneralQuery.
func Classify(transcript string) Intent {
	lowered := strings.ToLower(transcript)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.intent
			}
		}
	}
	return GeneralQuery
}

// RelevantItems filters the snapshot down to items mentioned by the transcript:
// an item stays if any whitespace token of the transcript is a substring of its
// name, part number, or category. Snapshot order is preserved and the result is
// capped at MaxRelevantItems.
func RelevantItems(transcript string, snapshot inventory.Snapshot) []inventory.Item {
	tokens := strings.Fields(strings.ToLower(transcript))
	if len(tokens) == 0 {
		return nil
	}
	var matched []inventory.Item
	for _, item := range snapshot {
		if matchesAny(item, tokens) {
			matched = append(matched, item)
			if len(matched) == MaxRelevantItems {
				break
			}
		}
	}
	return matched
}

// MaxRelevantItems bounds the relevance filter output.
const MaxRelevantItems = 5

func matchesAny(item inventory.Item, tokens []string) bool {
	name := strings.ToLower(item.Name)
	part := strings.ToLower(item.PartNumber)
	category := strings.ToLower(item.Category)
	for _, token := range tokens {
		if strings.Contains(name, token) || strings.Contains(part, token) || strings.Contains(category, token) {
			return true
		}
	}
	return false
}
