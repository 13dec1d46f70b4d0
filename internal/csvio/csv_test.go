package csvio

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

func sampleItems() []inventory.Item {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return []inventory.Item{
		{
			ID:          "item-1",
			Name:        "Oil Filter",
			PartNumber:  "OF-001",
			Description: "Standard spin-on filter",
			Category:    inventory.CategoryEngine,
			Quantity:    10,
			MinQuantity: 5,
			Location:    "A-1",
			Price:       15.99,
			Supplier:    "Acme Parts",
			Barcode:     "123456",
			CreatedAt:   created,
			UpdatedAt:   created,
			Tags:        []string{"filter", "service"},
		},
		{
			ID:          "item-2",
			Name:        `Brake Pad, "Ceramic"`,
			Description: "Front axle\nlow dust",
			Category:    inventory.CategoryBrake,
			Quantity:    4,
			MinQuantity: 5,
			Price:       45.99,
		},
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleItems()
	encoded := Encode(original)

	decoded, errs := Decode(encoded)
	if errs != 0 {
		t.Fatalf("expected no row errors, got %d", errs)
	}
	if len(decoded) != len(original) {
		t.Fatalf("expected %d items, got %d", len(original), len(decoded))
	}
	for i := range original {
		if !reflect.DeepEqual(decoded[i], original[i]) {
			t.Fatalf("item %d mismatch:\n got %+v\nwant %+v", i, decoded[i], original[i])
		}
	}
}

func TestEncodeQuotesSpecialValues(t *testing.T) {
	encoded := Encode(sampleItems())
	if !strings.Contains(encoded, `"Brake Pad, ""Ceramic"""`) {
		t.Fatalf("expected quoted value with doubled quotes, got:\n%s", encoded)
	}
	if !strings.Contains(encoded, "\"Front axle\nlow dust\"") {
		t.Fatalf("expected embedded newline preserved inside quotes, got:\n%s", encoded)
	}
	if !strings.HasPrefix(encoded, strings.Join(Header, ",")+"\n") {
		t.Fatalf("expected fixed header line")
	}
}

func TestDecodeCountsShortRows(t *testing.T) {
	encoded := Encode(sampleItems())
	lines := strings.SplitN(encoded, "\n", 3)
	// header, valid row, short row, then the rest of the valid input
	mangled := lines[0] + "\n" + lines[1] + "\nIncomplete,Row\n" + lines[2]

	decoded, errs := Decode(mangled)
	if errs != 1 {
		t.Fatalf("expected 1 row error, got %d", errs)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected valid rows around the bad one to survive, got %d", len(decoded))
	}
	if decoded[0].ID != "item-1" || decoded[1].ID != "item-2" {
		t.Fatalf("unexpected rows: %+v", decoded)
	}
}

func TestDecodeAcceptsCRLF(t *testing.T) {
	encoded := strings.ReplaceAll(Encode(sampleItems()[:1]), "\n", "\r\n")
	decoded, errs := Decode(encoded)
	if errs != 0 || len(decoded) != 1 {
		t.Fatalf("expected clean CRLF decode, got %d items, %d errors", len(decoded), errs)
	}
	if decoded[0].Name != "Oil Filter" {
		t.Fatalf("unexpected item: %+v", decoded[0])
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	items, errs := Decode("")
	if items != nil || errs != 0 {
		t.Fatalf("expected empty result, got %v items %d errors", items, errs)
	}
}

func TestDecodeNumericFallbacks(t *testing.T) {
	row := "id-1,Widget,W-1,,other,abc,,B-2,oops,,,,,"
	decoded, errs := Decode(strings.Join(Header, ",") + "\n" + row + "\n")
	if errs != 0 {
		t.Fatalf("lenient numeric parse should not count as row error, got %d", errs)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 item, got %d", len(decoded))
	}
	got := decoded[0]
	if got.Quantity != 0 {
		t.Fatalf("bad quantity should fall back to 0, got %d", got.Quantity)
	}
	if got.MinQuantity != inventory.DefaultMinQuantity {
		t.Fatalf("missing min quantity should fall back, got %d", got.MinQuantity)
	}
	if got.Price != 0 {
		t.Fatalf("bad price should fall back to 0, got %v", got.Price)
	}
}

func TestValidateHeader(t *testing.T) {
	if err := ValidateHeader(Encode(nil)); err != nil {
		t.Fatalf("canonical header should validate: %v", err)
	}
	if err := ValidateHeader("id,NAME,part number,category,QUANTITY,extra\n"); err != nil {
		t.Fatalf("case-insensitive match should validate: %v", err)
	}
	if err := ValidateHeader("Name,Quantity\n"); err == nil {
		t.Fatal("expected missing column error")
	}
	if err := ValidateHeader(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}
