// Package craft implements the crafting cost-resolution engine: recipe
// expansion into a material dependency tree, market price decoration,
// bottom-up craft-vs-buy cost computation, shared-material aggregation, and
// ownership satisfiability resolution.
package craft

import "github.com/talgya/craftcost/internal/xivdata"

// PricePoint is the cheapest observed unit price for one quality tier,
// together with the world it was listed on. An empty world means the price
// came from summary statistics rather than an itemized listing.
type PricePoint struct {
	PricePerUnit int    `json:"pricePerUnit"`
	World        string `json:"world"`
}

// MaterialNode is one position in the dependency tree of a craftable item.
// Trees are strictly positional: the same item id may appear at several
// positions as distinct nodes. Nodes are mutated in place by the price and
// cost passes and are read-only afterwards.
type MaterialNode struct {
	Item             xivdata.Item        `json:"item"`
	Recipe           *xivdata.Recipe     `json:"recipe,omitempty"`
	RequiredQuantity int                 `json:"requiredQuantity"`
	Depth            int                 `json:"depth"`
	Children         []*MaterialNode     `json:"children,omitempty"`

	PriceNQ *PricePoint `json:"priceNQ,omitempty"`
	PriceHQ *PricePoint `json:"priceHQ,omitempty"`

	// Display-only decoration from the price pass; not used in cost math.
	ListingSample []ListingSample `json:"listingSample,omitempty"`
	LastUpload    int64           `json:"lastUpload,omitempty"`

	// CraftCost is the cheapest total cost to produce RequiredQuantity
	// units by crafting, nil when the node is uncraftable or any child is
	// both unpriced and uncraftable.
	CraftCost *int `json:"craftCost,omitempty"`
}

// ListingSample is one row of the top-K cheapest listings kept for display.
type ListingSample struct {
	PricePerUnit int    `json:"pricePerUnit"`
	Quantity     int    `json:"quantity"`
	HQ           bool   `json:"hq"`
	World        string `json:"world"`
}

// CheapestUnitPrice returns the lower of the node's NQ and HQ unit prices,
// or nil when the node is unpriced.
func (n *MaterialNode) CheapestUnitPrice() *PricePoint {
	switch {
	case n.PriceNQ == nil:
		return n.PriceHQ
	case n.PriceHQ == nil:
		return n.PriceNQ
	case n.PriceHQ.PricePerUnit < n.PriceNQ.PricePerUnit:
		return n.PriceHQ
	default:
		return n.PriceNQ
	}
}

// BuyCost returns RequiredQuantity times the cheapest unit price, or nil
// when the node is unpriced.
func (n *MaterialNode) BuyCost() *int {
	p := n.CheapestUnitPrice()
	if p == nil {
		return nil
	}
	total := p.PricePerUnit * n.RequiredQuantity
	return &total
}

// Walk visits the node and all descendants depth-first, parent before
// children.
func (n *MaterialNode) Walk(fn func(node *MaterialNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// ItemIDs collects every distinct item id in the tree, in first-seen order.
func (n *MaterialNode) ItemIDs() []xivdata.ItemID {
	var ids []xivdata.ItemID
	seen := make(map[xivdata.ItemID]bool)
	n.Walk(func(node *MaterialNode) {
		if !seen[node.Item.ID] {
			seen[node.Item.ID] = true
			ids = append(ids, node.Item.ID)
		}
	})
	return ids
}
