package xivdata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Store is the in-memory item/recipe index. It is built once and read-only
// afterwards, so lookups are safe from any goroutine.
type Store struct {
	items   map[ItemID]Item
	recipes map[ItemID][]Recipe
}

// NewStore builds a store from already-decoded items and recipes.
// Recipes with a non-positive yield are normalized to yield 1.
func NewStore(items []Item, recipes []Recipe) *Store {
	s := &Store{
		items:   make(map[ItemID]Item, len(items)),
		recipes: make(map[ItemID][]Recipe, len(recipes)),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	for _, r := range recipes {
		if r.Yield < 1 {
			r.Yield = 1
		}
		s.recipes[r.ResultID] = append(s.recipes[r.ResultID], r)
	}
	return s
}

// dataFile is the on-disk JSON shape of the static database snapshot.
type dataFile struct {
	Items   []Item   `json:"items"`
	Recipes []Recipe `json:"recipes"`
}

// LoadFile reads a static database snapshot from a JSON file.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	var df dataFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}

	s := NewStore(df.Items, df.Recipes)
	slog.Info("static database loaded", "path", path, "items", len(s.items), "craftable", len(s.recipes))
	return s, nil
}

// GetItem looks up an item by id.
func (s *Store) GetItem(id ItemID) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// RecipesFor returns all known recipes producing the item, in load order.
func (s *Store) RecipesFor(id ItemID) []Recipe {
	return s.recipes[id]
}

// FirstRecipeFor returns the first known recipe producing the item, or nil
// if the item is not craftable. When a source reports several recipes for
// one result, the first one loaded wins.
func (s *Store) FirstRecipeFor(id ItemID) *Recipe {
	rs := s.recipes[id]
	if len(rs) == 0 {
		return nil
	}
	r := rs[0]
	return &r
}

// ItemCount returns the number of indexed items.
func (s *Store) ItemCount() int {
	return len(s.items)
}
