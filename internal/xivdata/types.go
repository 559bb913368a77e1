// Package xivdata provides the static item and recipe database.
// It is a pure lookup layer: items and recipes are loaded once at startup
// into in-memory indexes and never mutated afterwards.
package xivdata

// ItemID identifies an item in the static database.
type ItemID int32

// Item is immutable reference data for a single item.
type Item struct {
	ID        ItemID `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Rarity    int    `json:"rarity"`
	CanBeHQ   bool   `json:"can_be_hq"`
	Tradeable bool   `json:"tradeable"`
}

// Ingredient is one material line of a recipe.
type Ingredient struct {
	ItemID   ItemID `json:"id"`
	Quantity int    `json:"quantity"`
}

// Recipe describes how an item is crafted. Yield is the number of result
// units produced per craft (always >= 1).
type Recipe struct {
	ResultID    ItemID       `json:"result"`
	Yield       int          `json:"yield"`
	Ingredients []Ingredient `json:"ingredients"`
}
