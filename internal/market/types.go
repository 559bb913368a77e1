// Package market provides the market-price retrieval client. Prices come
// from an external aggregation API serving per-item listing boards and
// summary statistics for a whole region, batched over HTTP JSON.
package market

import "github.com/talgya/craftcost/internal/xivdata"

// Listing is one sell order observed on a market board.
type Listing struct {
	PricePerUnit int    `json:"pricePerUnit"`
	Quantity     int    `json:"quantity"`
	HQ           bool   `json:"hq"`
	WorldName    string `json:"worldName"`
	Total        int    `json:"total"`
}

// Snapshot is the market state of one item in one region at fetch time.
// An item with no market presence simply has no snapshot at all.
type Snapshot struct {
	ItemID         xivdata.ItemID `json:"itemID"`
	Listings       []Listing      `json:"listings"`
	MinPriceNQ     int            `json:"minPriceNQ"`
	MinPriceHQ     int            `json:"minPriceHQ"`
	LastUploadTime int64          `json:"lastUploadTime"`
}

// multiResponse is the wire shape of a batched lookup. Items absent from
// the map had no market activity ("unresolved"), which is not an error.
type multiResponse struct {
	Items      map[string]Snapshot `json:"items"`
	Unresolved []xivdata.ItemID    `json:"unresolvedItems"`
}
