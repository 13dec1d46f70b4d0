package intent

import (
	"testing"

	"github.com/vibeinventory/partsvoice/internal/inventory"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		transcript string
		want       Intent
	}{
		{"Show me brake pads", Search},
		{"find all oil filters", Search},
		{"Search inventory for plugs", Search},
		{"Add 10 oil filters", Add},
		{"new spark plugs arrived", Add},
		{"Update quantity of spark plugs to 20", Update},
		{"change the price of brake pads", Update},
		{"delete the old alternator", Delete},
		{"remove that entry", Delete},
		{"how many brake discs are left", CheckStock},
		{"stock levels for engine parts", CheckStock},
		{"xyz", GeneralQuery},
		{"", GeneralQuery},
	}
	for _, tc := range cases {
		if got := Classify(tc.transcript); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.transcript, got, tc.want)
		}
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	// "show" precedes "add" in the rule table.
	if got := Classify("show me how to add a part"); got != Search {
		t.Fatalf("expected Search, got %v", got)
	}
}

func TestRelevantItems(t *testing.T) {
	snapshot := inventory.Snapshot{
		{ID: "1", Name: "Oil Filter", PartNumber: "OF-001", Category: inventory.CategoryEngine},
		{ID: "2", Name: "Brake Pad", PartNumber: "BP-002", Category: inventory.CategoryBrake},
	}

	got := RelevantItems("find oil filter", snapshot)
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected only the oil filter, got %+v", got)
	}
}

func TestRelevantItemsPreservesOrderAndCap(t *testing.T) {
	var snapshot inventory.Snapshot
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		snapshot = append(snapshot, inventory.Item{ID: id, Name: "filter " + id})
	}

	got := RelevantItems("show every filter", snapshot)
	if len(got) != MaxRelevantItems {
		t.Fatalf("expected %d items, got %d", MaxRelevantItems, len(got))
	}
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		if got[i].ID != want {
			t.Fatalf("expected snapshot order preserved, got %+v", got)
		}
	}
}

func TestRelevantItemsMatchesPartNumberAndCategory(t *testing.T) {
	snapshot := inventory.Snapshot{
		{ID: "1", Name: "Widget", PartNumber: "BP-002"},
		{ID: "2", Name: "Gasket", Category: inventory.CategoryBrake},
	}
	if got := RelevantItems("check bp-002", snapshot); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected part number match, got %+v", got)
	}
	if got := RelevantItems("anything brake related", snapshot); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected category match, got %+v", got)
	}
}

func TestRelevantItemsEmptyTranscript(t *testing.T) {
	snapshot := inventory.Snapshot{{ID: "1", Name: "Oil Filter"}}
	if got := RelevantItems("", snapshot); got != nil {
		t.Fatalf("expected nil for empty transcript, got %+v", got)
	}
}
