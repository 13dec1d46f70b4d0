package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibeinventory/partsvoice/internal/config"
	_ "modernc.org/sqlite"
)

// ErrEmptyID is returned by Update and Delete when no item ID is supplied.
var ErrEmptyID = errors.New("item id must not be empty")

// Store is the SQLite-backed inventory collection.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the inventory store at the configured path.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    part_number TEXT,
    description TEXT,
    category TEXT,
    quantity INTEGER NOT NULL DEFAULT 0,
    min_quantity INTEGER NOT NULL DEFAULT 5,
    location TEXT,
    price REAL NOT NULL DEFAULT 0,
    supplier TEXT,
    barcode TEXT,
    tags TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
CREATE INDEX IF NOT EXISTS idx_items_part_number ON items(part_number);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts a new item and returns its ID, generating one when absent.
func (s *Store) Add(ctx context.Context, item Item) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := s.clock().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.MinQuantity == 0 {
		item.MinQuantity = DefaultMinQuantity
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items(id, name, part_number, description, category, quantity, min_quantity,
		                   location, price, supplier, barcode, tags, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.PartNumber, item.Description, item.Category,
		item.Quantity, item.MinQuantity, item.Location, item.Price,
		item.Supplier, item.Barcode, joinTags(item.Tags), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}
	return item.ID, nil
}

// Update rewrites an existing item.
func (s *Store) Update(ctx context.Context, item Item) error {
	if item.ID == "" {
		return ErrEmptyID
	}
	item.UpdatedAt = s.clock().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name=?, part_number=?, description=?, category=?, quantity=?,
		                  min_quantity=?, location=?, price=?, supplier=?, barcode=?, tags=?, updated_at=?
		 WHERE id=?`,
		item.Name, item.PartNumber, item.Description, item.Category, item.Quantity,
		item.MinQuantity, item.Location, item.Price, item.Supplier, item.Barcode,
		joinTags(item.Tags), item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an item by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Get retrieves one item by ID, sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id=?`, id)
	return scanItem(row)
}

// Snapshot returns an immutable copy of the full inventory ordered by name.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.query(ctx, selectColumns+` ORDER BY name ASC`)
}

// LowStock returns items at or below their restock threshold.
func (s *Store) LowStock(ctx context.Context) (Snapshot, error) {
	return s.query(ctx, selectColumns+` WHERE quantity <= min_quantity ORDER BY name ASC`)
}

const selectColumns = `SELECT id, name, part_number, description, category, quantity, min_quantity,
       location, price, supplier, barcode, tags, created_at, updated_at FROM items`

func (s *Store) query(ctx context.Context, stmt string, args ...any) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items Snapshot
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var (
		item    Item
		tags    string
		created string
		updated string
	)
	err := row.Scan(&item.ID, &item.Name, &item.PartNumber, &item.Description,
		&item.Category, &item.Quantity, &item.MinQuantity, &item.Location,
		&item.Price, &item.Supplier, &item.Barcode, &tags, &created, &updated)
	if err != nil {
		return Item{}, err
	}
	item.Tags = splitTags(tags)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		item.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		item.UpdatedAt = ts
	}
	return item, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ";")
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
