// Package extract turns free-form phrases into structured inventory fields.
// It is a best-effort parse: labeled fields ("Quantity: 15") win, unlabeled
// phrases ("Add 10 brake pads at 45.99") fall back to positional heuristics,
// and anything still missing degrades to defaults instead of failing.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

// Fields is the structured result of one extraction. Always fully populated.
type Fields struct {
	Name       string
	PartNumber string
	Quantity   int
	Location   string
	Price      float64
	Category   string
}

// Defaults applied when a field is absent or its value fails to parse.
const (
	DefaultName     = "Unknown Item"
	DefaultQuantity = 1
	DefaultCategory = inventory.CategoryOther
)

// Each label pattern captures a run of characters after the label up to the
// next comma or line break. Labels are matched case-insensitively. The
// separator group distinguishes "Location: Aisle 3" from "location A-12".
var (
	nameRe     = fieldPattern(`name`)
	partRe     = fieldPattern(`part\s*number`)
	quantityRe = fieldPattern(`quantity`)
	locationRe = fieldPattern(`location`)
	priceRe    = fieldPattern(`price`)
	categoryRe = fieldPattern(`category`)
)

func fieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + label + `([:=\s]+)([^,\n]+)`)
}

var (
	integerRe = regexp.MustCompile(`\b\d+\b`)
	decimalRe = regexp.MustCompile(`\$?\b\d+\.\d+\b`)
)

// Extract parses inventory fields out of text. It never fails; absent or
// unparsable fields fall back to their defaults.
func Extract(text string) Fields {
	fields := Fields{
		Name:     DefaultName,
		Quantity: DefaultQuantity,
		Category: DefaultCategory,
	}
	if strings.TrimSpace(text) == "" {
		return fields
	}

	name, nameLabeled := capture(nameRe, text)
	if nameLabeled {
		fields.Name = name
	} else if guessed := guessName(text); guessed != "" {
		fields.Name = guessed
	}

	if v, ok := capture(partRe, text); ok {
		fields.PartNumber = v
	}

	if v, ok := capture(quantityRe, text); ok {
		if n, err := strconv.Atoi(v); err == nil {
			fields.Quantity = n
		}
	} else if v := integerRe.FindString(stripDecimals(text)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			fields.Quantity = n
		}
	}

	if sep, v, ok := captureSep(locationRe, text); ok {
		// A bare-word label ("location A-12 at ...") runs into trailing
		// prose; keep only the first token then. A punctuated label
		// ("Location: Aisle 3") is taken whole.
		if strings.ContainsAny(sep, ":=") {
			fields.Location = v
		} else {
			fields.Location = strings.Fields(v)[0]
		}
	}

	if v, ok := capture(priceRe, text); ok {
		if p, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64); err == nil {
			fields.Price = p
		}
	} else if v := decimalRe.FindString(text); v != "" {
		if p, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64); err == nil {
			fields.Price = p
		}
	}

	if v, ok := capture(categoryRe, text); ok {
		fields.Category = v
	} else if cat := knownCategory(text); cat != "" {
		fields.Category = cat
	}

	return fields
}

func capture(re *regexp.Regexp, text string) (string, bool) {
	_, value, ok := captureSep(re, text)
	return value, ok
}

func captureSep(re *regexp.Regexp, text string) (sep, value string, ok bool) {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return "", "", false
	}
	value = strings.TrimSpace(match[2])
	if value == "" {
		return "", "", false
	}
	return match[1], value, true
}

// leading verbs and trailing prose markers stripped when guessing an item name
// from an unlabeled phrase.
var (
	verbWords = map[string]bool{
		"add": true, "new": true, "update": true, "change": true,
		"delete": true, "remove": true, "find": true, "search": true,
		"show": true, "please": true,
	}
	stopWords = map[string]bool{
		"to": true, "at": true, "in": true, "on": true, "for": true,
		"each": true, "with": true, "per": true,
	}
	labelWords = map[string]bool{
		"name": true, "partnumber": true, "part": true, "quantity": true,
		"location": true, "price": true, "category": true,
	}
)

// guessName extracts the noun run of an unlabeled phrase: skip leading verbs
// and numbers, collect words until a stopword, label, or number, and
// title-case the rest.
func guessName(text string) string {
	var words []string
	for _, token := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(token, ".,!?:="))
		switch {
		case word == "":
			continue
		case len(words) == 0 && (verbWords[word] || isNumeric(word)):
			continue
		case stopWords[word] || labelWords[word] || isNumeric(word):
			return titleCase(words)
		default:
			words = append(words, word)
		}
	}
	return titleCase(words)
}

func titleCase(words []string) string {
	titled := make([]string, len(words))
	for i, w := range words {
		titled[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(titled, " ")
}

func isNumeric(word string) bool {
	if word == "" {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimPrefix(word, "$"), 64)
	return err == nil
}

// stripDecimals blanks decimal numbers so the quantity fallback does not pick
// up the integer part of a price.
func stripDecimals(text string) string {
	return decimalRe.ReplaceAllString(text, " ")
}

var categories = []string{
	inventory.CategoryEngine,
	inventory.CategoryBrake,
	inventory.CategorySuspension,
	inventory.CategoryElectrical,
	inventory.CategoryTransmission,
	inventory.CategoryBody,
	inventory.CategoryAccessories,
	inventory.CategoryFluids,
}

func knownCategory(text string) string {
	lowered := strings.ToLower(text)
	for _, cat := range categories {
		if strings.Contains(lowered, cat) {
			return cat
		}
	}
	return ""
}
