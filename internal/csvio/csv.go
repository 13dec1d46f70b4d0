// Package csvio encodes and decodes inventory records as CSV with a fixed
// column order. Decoding is forgiving: malformed rows are counted and skipped,
// never fatal to the whole import.
package csvio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

// Header is the mandatory first line, columns in fixed order.
var Header = []string{
	"ID", "Name", "Part Number", "Description", "Category", "Quantity",
	"Min Quantity", "Location", "Price", "Supplier", "Barcode",
	"Created At", "Updated At", "Tags",
}

// RequiredColumns must be present (case-insensitive) for a decode to be
// attempted.
var RequiredColumns = []string{"ID", "Name", "Part Number", "Category", "Quantity"}

const minFields = 14

// Encode renders records as CSV text, one line per record after the header.
func Encode(items []inventory.Item) string {
	var b strings.Builder
	b.WriteString(strings.Join(Header, ","))
	b.WriteByte('\n')
	for _, item := range items {
		fields := []string{
			item.ID,
			item.Name,
			item.PartNumber,
			item.Description,
			item.Category,
			strconv.Itoa(item.Quantity),
			strconv.Itoa(item.MinQuantity),
			item.Location,
			strconv.FormatFloat(item.Price, 'f', -1, 64),
			item.Supplier,
			item.Barcode,
			formatTime(item.CreatedAt),
			formatTime(item.UpdatedAt),
			strings.Join(item.Tags, ";"),
		}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escape(f))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// escape wraps a value in quotes, doubling internal quotes, when it contains a
// comma, quote, or newline.
func escape(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// Decode parses CSV text into records, skipping the header line. Rows with
// fewer than the required field count are dropped and counted in errs.
func Decode(text string) (items []inventory.Item, errs int) {
	records := parseRecords(text)
	if len(records) == 0 {
		return nil, 0
	}
	for _, record := range records[1:] {
		if len(record) == 1 && record[0] == "" {
			continue
		}
		if len(record) < minFields {
			errs++
			continue
		}
		items = append(items, itemFromRecord(record))
	}
	return items, errs
}

// ValidateHeader checks the required column subset is present before a full
// decode is attempted.
func ValidateHeader(text string) error {
	records := parseRecords(text)
	if len(records) == 0 {
		return fmt.Errorf("csv input is empty")
	}
	header := strings.ToLower(strings.Join(records[0], ","))
	for _, col := range RequiredColumns {
		if !strings.Contains(header, strings.ToLower(col)) {
			return fmt.Errorf("missing required column %q", col)
		}
	}
	return nil
}

func itemFromRecord(record []string) inventory.Item {
	return inventory.Item{
		ID:          record[0],
		Name:        record[1],
		PartNumber:  record[2],
		Description: record[3],
		Category:    record[4],
		Quantity:    parseInt(record[5], 0),
		MinQuantity: parseInt(record[6], inventory.DefaultMinQuantity),
		Location:    record[7],
		Price:       parseFloat(record[8]),
		Supplier:    record[9],
		Barcode:     record[10],
		CreatedAt:   parseTime(record[11]),
		UpdatedAt:   parseTime(record[12]),
		Tags:        splitTags(record[13]),
	}
}

// parseRecords walks the text character by character, splitting on commas and
// line breaks only outside quoted spans. CRLF and LF are both accepted. Fields
// come back trimmed with surrounding quotes stripped and doubled quotes
// unescaped.
func parseRecords(text string) [][]string {
	var (
		records      [][]string
		fields       []string
		field        strings.Builder
		insideQuotes bool
	)
	flushField := func() {
		fields = append(fields, cleanField(field.String()))
		field.Reset()
	}
	flushRecord := func() {
		flushField()
		records = append(records, fields)
		fields = nil
	}

	for _, ch := range text {
		switch {
		case ch == '"':
			insideQuotes = !insideQuotes
			field.WriteRune(ch)
		case ch == ',' && !insideQuotes:
			flushField()
		case ch == '\n' && !insideQuotes:
			flushRecord()
		case ch == '\r' && !insideQuotes:
			// swallowed; the following \n ends the record
		default:
			field.WriteRune(ch)
		}
	}
	if field.Len() > 0 || len(fields) > 0 {
		flushRecord()
	}
	return records
}

func cleanField(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = value[1 : len(value)-1]
		value = strings.ReplaceAll(value, `""`, `"`)
	}
	return value
}

func parseInt(value string, fallback int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return fallback
}

func parseFloat(value string) float64 {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
