package craft

import "math"

// CalculateCosts walks the tree bottom-up and fills in CraftCost on every
// node. A leaf (no recipe) is never craftable; a recipe node's craft cost
// is the sum over its children of the cheaper of crafting or buying that
// child. A child that can be neither crafted nor bought poisons the whole
// parent: partial costs are never reported.
//
// Child quantities were already scaled by the builder to whole crafts
// (ceil(need/yield) * per-craft quantity), so the sum here is the full cost
// of performing those crafts; no further yield division is applied.
func CalculateCosts(root *MaterialNode) {
	if root == nil {
		return
	}
	calcNode(root)
}

func calcNode(node *MaterialNode) {
	for _, child := range node.Children {
		calcNode(child)
	}

	node.CraftCost = nil
	if node.Recipe == nil || len(node.Children) == 0 {
		return
	}

	total := 0.0
	for _, child := range node.Children {
		best, ok := childBestCost(child)
		if !ok {
			return
		}
		total += float64(best)
	}

	cost := int(math.Ceil(total))
	node.CraftCost = &cost
}

// childBestCost returns min(craft, buy) for a child, preferring whichever
// is present when only one is. ok is false when neither exists.
func childBestCost(child *MaterialNode) (int, bool) {
	craft := child.CraftCost
	buy := child.BuyCost()

	switch {
	case craft == nil && buy == nil:
		return 0, false
	case craft == nil:
		return *buy, true
	case buy == nil:
		return *craft, true
	case *craft < *buy:
		return *craft, true
	default:
		return *buy, true
	}
}

// EffectiveRootCost is the final craft-or-buy decision for the root item.
// The comparison is deliberately against the HQ buy price, not the cheapest
// of NQ/HQ: the question the tree answers is "craft it HQ myself, or buy
// it HQ outright".
func EffectiveRootCost(root *MaterialNode) *int {
	if root == nil {
		return nil
	}

	var buyHQ *int
	if root.PriceHQ != nil {
		total := root.PriceHQ.PricePerUnit * root.RequiredQuantity
		buyHQ = &total
	}

	switch {
	case root.CraftCost == nil:
		return buyHQ
	case buyHQ == nil:
		return root.CraftCost
	case *buyHQ < *root.CraftCost:
		return buyHQ
	default:
		return root.CraftCost
	}
}
