package craft

import (
	"sort"

	"github.com/talgya/craftcost/internal/xivdata"
)

// Usage records that a parent item requires some quantity of a material,
// and at which depth the parent sits. Depth matters: owned stock is
// allocated to deeper parents first.
type Usage struct {
	ParentID    xivdata.ItemID `json:"parentId"`
	ParentDepth int            `json:"parentDepth"`
	Quantity    int            `json:"quantity"`
}

// AggregatedMaterial is a derived view merging every tree position of one
// item. Entries in ByDepth are merged per (item, depth); entries in ByID
// merge all depths, keeping the depth closest to the root. Built fresh on
// every aggregation, never mutated after.
type AggregatedMaterial struct {
	Item          xivdata.Item `json:"item"`
	Depth         int          `json:"depth"`
	TotalQuantity int          `json:"totalQuantity"`
	PriceNQ       *PricePoint  `json:"priceNQ,omitempty"`
	PriceHQ       *PricePoint  `json:"priceHQ,omitempty"`
	UsedBy        []Usage      `json:"usedBy"`
}

// Aggregation is the merged-by-id view of one or more material trees.
// ChildEdges re-derives parent→child quantity totals from the positional
// walk, since positional identity is lost once nodes merge by id.
type Aggregation struct {
	ByDepth    map[int][]*AggregatedMaterial
	ByID       map[xivdata.ItemID]*AggregatedMaterial
	ChildEdges map[xivdata.ItemID]map[xivdata.ItemID]int
}

// Aggregate merges the material nodes of the given trees. Root nodes are
// consumers, not materials: they contribute edges and usages but no
// aggregated entries of their own.
func Aggregate(trees []*MaterialNode, showCrystals bool) *Aggregation {
	agg := &Aggregation{
		ByDepth:    make(map[int][]*AggregatedMaterial),
		ByID:       make(map[xivdata.ItemID]*AggregatedMaterial),
		ChildEdges: make(map[xivdata.ItemID]map[xivdata.ItemID]int),
	}

	byDepthKey := make(map[depthKey]*AggregatedMaterial)
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		for _, child := range tree.Children {
			agg.mergeNode(child, tree, byDepthKey, showCrystals)
		}
	}

	for _, bucket := range agg.ByDepth {
		sortBucket(bucket)
	}
	return agg
}

type depthKey struct {
	id    xivdata.ItemID
	depth int
}

func (agg *Aggregation) mergeNode(node, parent *MaterialNode, byDepthKey map[depthKey]*AggregatedMaterial, showCrystals bool) {
	if node == nil {
		return
	}
	if !showCrystals && xivdata.IsCrystal(node.Item.ID) {
		return
	}

	use := Usage{
		ParentID:    parent.Item.ID,
		ParentDepth: parent.Depth,
		Quantity:    node.RequiredQuantity,
	}

	// Per-(item, depth) entry.
	key := depthKey{id: node.Item.ID, depth: node.Depth}
	entry, ok := byDepthKey[key]
	if !ok {
		entry = &AggregatedMaterial{Item: node.Item, Depth: node.Depth}
		byDepthKey[key] = entry
		agg.ByDepth[node.Depth] = append(agg.ByDepth[node.Depth], entry)
	}
	entry.TotalQuantity += node.RequiredQuantity
	entry.addUsage(use)
	entry.copyPrices(node)

	// Per-id entry across all depths; keeps the depth closest to the root.
	merged, ok := agg.ByID[node.Item.ID]
	if !ok {
		merged = &AggregatedMaterial{Item: node.Item, Depth: node.Depth}
		agg.ByID[node.Item.ID] = merged
	}
	if node.Depth < merged.Depth {
		merged.Depth = node.Depth
	}
	merged.TotalQuantity += node.RequiredQuantity
	merged.addUsage(use)
	merged.copyPrices(node)

	// Positional edge, re-derived for the merged view.
	edges := agg.ChildEdges[parent.Item.ID]
	if edges == nil {
		edges = make(map[xivdata.ItemID]int)
		agg.ChildEdges[parent.Item.ID] = edges
	}
	edges[node.Item.ID] += node.RequiredQuantity

	for _, child := range node.Children {
		agg.mergeNode(child, node, byDepthKey, showCrystals)
	}
}

// addUsage accumulates a parent claim, merging claims from the same parent
// at the same depth.
func (m *AggregatedMaterial) addUsage(use Usage) {
	for i := range m.UsedBy {
		if m.UsedBy[i].ParentID == use.ParentID && m.UsedBy[i].ParentDepth == use.ParentDepth {
			m.UsedBy[i].Quantity += use.Quantity
			return
		}
	}
	m.UsedBy = append(m.UsedBy, use)
}

// copyPrices carries the underlying node's pricing onto the aggregate; the
// same item prices identically at every position, so first wins.
func (m *AggregatedMaterial) copyPrices(node *MaterialNode) {
	if m.PriceNQ == nil {
		m.PriceNQ = node.PriceNQ
	}
	if m.PriceHQ == nil {
		m.PriceHQ = node.PriceHQ
	}
}

// sortBucket orders one depth bucket for display: non-crystal materials
// first by descending total quantity, crystals last. Consumers rely on
// this grouping being stable.
func sortBucket(bucket []*AggregatedMaterial) {
	sort.SliceStable(bucket, func(i, j int) bool {
		ci, cj := xivdata.IsCrystal(bucket[i].Item.ID), xivdata.IsCrystal(bucket[j].Item.ID)
		if ci != cj {
			return !ci
		}
		if bucket[i].TotalQuantity != bucket[j].TotalQuantity {
			return bucket[i].TotalQuantity > bucket[j].TotalQuantity
		}
		return bucket[i].Item.ID < bucket[j].Item.ID
	})
}
