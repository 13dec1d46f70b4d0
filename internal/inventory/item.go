package inventory

import "time"

// Item is one motor-parts inventory record. The voice core only ever reads
// items through a Snapshot; writes go through the Store.
type Item struct {
	ID          string
	Name        string
	PartNumber  string
	Description string
	Category    string
	Quantity    int
	MinQuantity int
	Location    string
	Price       float64
	Supplier    string
	Barcode     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []string
}

// Snapshot is an immutable copy of inventory taken at the start of a turn.
// Callers must not mutate it.
type Snapshot []Item

// Part categories. "other" is the extraction default.
const (
	CategoryEngine       = "engine"
	CategoryBrake        = "brake"
	CategorySuspension   = "suspension"
	CategoryElectrical   = "electrical"
	CategoryTransmission = "transmission"
	CategoryBody         = "body"
	CategoryAccessories  = "accessories"
	CategoryFluids       = "fluids"
	CategoryOther        = "other"
)

// DefaultMinQuantity is the restock threshold applied when a record does not
// specify one.
const DefaultMinQuantity = 5

// LowStock reports whether the item is at or below its restock threshold.
func (i Item) LowStock() bool {
	return i.Quantity <= i.MinQuantity
}
