// Package persistence provides SQLite-based storage for crafting lists
// and owned material counters.
package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/craftcost/internal/xivdata"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT NOT NULL,
		show_crystals INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS list_items (
		list_id TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (list_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS owned (
		item_id INTEGER PRIMARY KEY,
		quantity INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_list_items_list ON list_items(list_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// List is a saved crafting list.
type List struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Region       string `db:"region" json:"region"`
	ShowCrystals bool   `db:"show_crystals" json:"showCrystals"`
	CreatedAt    int64  `db:"created_at" json:"createdAt"`
}

// ListItem is one root entry of a crafting list.
type ListItem struct {
	ListID   string         `db:"list_id" json:"-"`
	ItemID   xivdata.ItemID `db:"item_id" json:"itemId"`
	Quantity int            `db:"quantity" json:"quantity"`
}

// CreateList stores a new list with its items in one transaction and
// returns the generated id.
func (db *DB) CreateList(name, region string, showCrystals bool, items []ListItem) (string, error) {
	id := uuid.NewString()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO lists (id, name, region, show_crystals, created_at) VALUES (?, ?, ?, ?, ?)",
		id, name, region, showCrystals, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert list: %w", err)
	}

	for _, it := range items {
		_, err := tx.Exec(
			"INSERT INTO list_items (list_id, item_id, quantity) VALUES (?, ?, ?)",
			id, it.ItemID, it.Quantity,
		)
		if err != nil {
			return "", fmt.Errorf("insert list item %d: %w", it.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Lists returns all saved lists, newest first.
func (db *DB) Lists() ([]List, error) {
	var lists []List
	err := db.conn.Select(&lists,
		"SELECT id, name, region, show_crystals, created_at FROM lists ORDER BY created_at DESC, id")
	return lists, err
}

// ListByID returns one list, or nil when no such list exists.
func (db *DB) ListByID(id string) (*List, error) {
	var lists []List
	err := db.conn.Select(&lists,
		"SELECT id, name, region, show_crystals, created_at FROM lists WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, nil
	}
	return &lists[0], nil
}

// ListItems returns the root entries of a list.
func (db *DB) ListItems(listID string) ([]ListItem, error) {
	var items []ListItem
	err := db.conn.Select(&items,
		"SELECT list_id, item_id, quantity FROM list_items WHERE list_id = ? ORDER BY item_id",
		listID,
	)
	return items, err
}

// DeleteList removes a list and its items.
func (db *DB) DeleteList(id string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM list_items WHERE list_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM lists WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetOwned records how many units of an item the user holds. A quantity
// of zero or less removes the counter.
func (db *DB) SetOwned(itemID xivdata.ItemID, quantity int) error {
	if quantity <= 0 {
		_, err := db.conn.Exec("DELETE FROM owned WHERE item_id = ?", itemID)
		return err
	}
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO owned (item_id, quantity) VALUES (?, ?)",
		itemID, quantity,
	)
	return err
}

// OwnedQuantities returns every owned counter as a map.
func (db *DB) OwnedQuantities() (map[xivdata.ItemID]int, error) {
	rows := []struct {
		ItemID   xivdata.ItemID `db:"item_id"`
		Quantity int            `db:"quantity"`
	}{}
	if err := db.conn.Select(&rows, "SELECT item_id, quantity FROM owned"); err != nil {
		return nil, err
	}

	owned := make(map[xivdata.ItemID]int, len(rows))
	for _, r := range rows {
		owned[r.ItemID] = r.Quantity
	}
	return owned, nil
}
