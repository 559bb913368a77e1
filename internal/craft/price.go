package craft

import (
	"sort"

	"github.com/talgya/craftcost/internal/market"
	"github.com/talgya/craftcost/internal/xivdata"
)

// listingSampleSize is how many price-sorted listings each node keeps for
// display.
const listingSampleSize = 8

// ApplyPrices decorates every node of the tree with the cheapest NQ and HQ
// listing from the batch. Nodes whose item has no snapshot keep nil prices;
// that is the normal state for items with no market presence.
func ApplyPrices(root *MaterialNode, snapshots map[xivdata.ItemID]market.Snapshot) {
	if root == nil {
		return
	}
	root.Walk(func(node *MaterialNode) {
		snap, ok := snapshots[node.Item.ID]
		if !ok {
			return
		}
		decorateNode(node, snap)
	})
}

func decorateNode(node *MaterialNode, snap market.Snapshot) {
	node.LastUpload = snap.LastUploadTime
	node.PriceNQ = nil
	node.PriceHQ = nil

	for _, l := range snap.Listings {
		if l.PricePerUnit <= 0 {
			continue
		}
		p := &PricePoint{PricePerUnit: l.PricePerUnit, World: l.WorldName}
		if l.HQ {
			if node.PriceHQ == nil || p.PricePerUnit < node.PriceHQ.PricePerUnit {
				node.PriceHQ = p
			}
		} else {
			if node.PriceNQ == nil || p.PricePerUnit < node.PriceNQ.PricePerUnit {
				node.PriceNQ = p
			}
		}
	}

	// No itemized listings: fall back to summary minimums. The summary
	// carries no origin world, so the label stays empty.
	if node.PriceNQ == nil && snap.MinPriceNQ > 0 {
		node.PriceNQ = &PricePoint{PricePerUnit: snap.MinPriceNQ}
	}
	if node.PriceHQ == nil && snap.MinPriceHQ > 0 {
		node.PriceHQ = &PricePoint{PricePerUnit: snap.MinPriceHQ}
	}

	node.ListingSample = sampleListings(snap.Listings)
}

// sampleListings returns the cheapest listings, price-sorted, capped at
// listingSampleSize.
func sampleListings(listings []market.Listing) []ListingSample {
	if len(listings) == 0 {
		return nil
	}
	sorted := make([]market.Listing, len(listings))
	copy(sorted, listings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PricePerUnit < sorted[j].PricePerUnit
	})
	if len(sorted) > listingSampleSize {
		sorted = sorted[:listingSampleSize]
	}

	sample := make([]ListingSample, len(sorted))
	for i, l := range sorted {
		sample[i] = ListingSample{
			PricePerUnit: l.PricePerUnit,
			Quantity:     l.Quantity,
			HQ:           l.HQ,
			World:        l.WorldName,
		}
	}
	return sample
}
