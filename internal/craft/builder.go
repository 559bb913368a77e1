package craft

import (
	"log/slog"
	"math"

	"github.com/talgya/craftcost/internal/xivdata"
)

// DefaultMaxDepth bounds recipe expansion. Legitimate crafting chains are
// far shallower; anything deeper is a degenerate or cyclic data artifact.
const DefaultMaxDepth = 10

// RecipeSource is the static-database lookup the builder depends on.
type RecipeSource interface {
	GetItem(id xivdata.ItemID) (xivdata.Item, bool)
	FirstRecipeFor(id xivdata.ItemID) *xivdata.Recipe
}

// Builder expands an item into its material dependency tree.
type Builder struct {
	Source       RecipeSource
	MaxDepth     int
	ShowCrystals bool
}

// NewBuilder creates a builder with the default depth limit.
func NewBuilder(source RecipeSource, showCrystals bool) *Builder {
	return &Builder{Source: source, MaxDepth: DefaultMaxDepth, ShowCrystals: showCrystals}
}

// Build expands itemID into a material tree for the given quantity.
// It returns nil only when the root item itself is unknown; every internal
// gap (missing sub-item, missing recipe, cycle, depth overflow) degrades to
// a leaf or a truncated branch instead of failing the build.
func (b *Builder) Build(itemID xivdata.ItemID, quantity int) *MaterialNode {
	if quantity < 1 {
		quantity = 1
	}
	if _, ok := b.Source.GetItem(itemID); !ok {
		slog.Warn("cannot build tree for unknown item", "item", itemID)
		return nil
	}
	return b.expand(itemID, quantity, 0, map[xivdata.ItemID]bool{})
}

// expand builds the subtree for one item. The visited set holds the item
// ids of all ancestors on this branch; it is cloned before descending so
// sibling branches never inherit each other's visited state.
func (b *Builder) expand(itemID xivdata.ItemID, quantity, depth int, visited map[xivdata.ItemID]bool) *MaterialNode {
	if depth > b.MaxDepth {
		return nil
	}

	item, ok := b.Source.GetItem(itemID)
	if !ok {
		// Unknown sub-item: keep the position as a bare leaf.
		item = xivdata.Item{ID: itemID}
	}

	node := &MaterialNode{
		Item:             item,
		RequiredQuantity: quantity,
		Depth:            depth,
	}

	// An ancestor already needed this item: stop here to break the cycle.
	if visited[itemID] {
		return node
	}

	recipe := b.Source.FirstRecipeFor(itemID)
	if recipe == nil {
		// Raw-gathered material, the common case.
		return node
	}
	node.Recipe = recipe

	yield := recipe.Yield
	if yield < 1 {
		yield = 1
	}
	crafts := int(math.Ceil(float64(quantity) / float64(yield)))

	branch := cloneVisited(visited)
	branch[itemID] = true

	for _, ing := range recipe.Ingredients {
		if !b.ShowCrystals && xivdata.IsCrystal(ing.ItemID) {
			continue
		}
		need := crafts * ing.Quantity
		if need <= 0 {
			continue
		}
		child := b.expand(ing.ItemID, need, depth+1, branch)
		if child == nil {
			// Depth overflow: drop the branch silently.
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node
}

func cloneVisited(visited map[xivdata.ItemID]bool) map[xivdata.ItemID]bool {
	clone := make(map[xivdata.ItemID]bool, len(visited)+1)
	for id := range visited {
		clone[id] = true
	}
	return clone
}
