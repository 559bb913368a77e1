package craft

import "github.com/talgya/craftcost/internal/xivdata"

// Status classifies how a user's owned stock covers one aggregated
// material. It is derived fresh on every resolve and never stored.
type Status int

const (
	// StatusBlocked: not owned in sufficient quantity and not coverable by
	// crafting from owned or craftable children.
	StatusBlocked Status = iota
	// StatusFullySatisfied: owned quantity covers the full aggregated
	// requirement outright.
	StatusFullySatisfied
	// StatusCraftable: every recipe child is covered — fully owned,
	// allocatable from owned stock, or itself craftable.
	StatusCraftable
	// StatusShadowed: every material parent is already fully satisfied, so
	// this material will never actually be needed.
	StatusShadowed
)

// String implements fmt.Stringer for logs and API payloads.
func (s Status) String() string {
	switch s {
	case StatusFullySatisfied:
		return "fully_satisfied"
	case StatusCraftable:
		return "craftable"
	case StatusShadowed:
		return "shadowed"
	default:
		return "blocked"
	}
}

// ResolveOwnership classifies every aggregated material against the user's
// owned quantities. The phases run in strict order: fully-satisfied first,
// then craftability (using depth-priority allocation of owned stock), then
// shadowing, which may overwrite either earlier classification.
//
// The computation is pure: owned is snapshotted on entry, the craftability
// memo lives only for this call, and resolving twice with the same inputs
// yields identical results.
func ResolveOwnership(agg *Aggregation, owned map[xivdata.ItemID]int) map[xivdata.ItemID]Status {
	r := &ownershipResolver{
		agg:    agg,
		owned:  make(map[xivdata.ItemID]int, len(owned)),
		status: make(map[xivdata.ItemID]Status, len(agg.ByID)),
		memo:   make(map[xivdata.ItemID]bool),
	}
	for id, qty := range owned {
		r.owned[id] = qty
	}

	// Phase 1: direct coverage, unconditional and before anything else.
	for id, mat := range agg.ByID {
		if r.owned[id] >= mat.TotalQuantity {
			r.status[id] = StatusFullySatisfied
		}
	}

	// Phase 3 (phase 2, allocation, runs inside the craftability check):
	// classify everything not already fully satisfied.
	for id := range agg.ByID {
		if _, done := r.status[id]; done {
			continue
		}
		if r.craftable(id) {
			r.status[id] = StatusCraftable
		} else {
			r.status[id] = StatusBlocked
		}
	}

	// Phase 4: shadowing overwrites materials whose every material parent
	// is already fully covered.
	for id, mat := range agg.ByID {
		if r.shadowed(mat) {
			r.status[id] = StatusShadowed
		}
	}

	return r.status
}

type ownershipResolver struct {
	agg    *Aggregation
	owned  map[xivdata.ItemID]int
	status map[xivdata.ItemID]Status
	memo   map[xivdata.ItemID]bool
}

// craftable reports whether the material can be produced from children that
// are each fully owned, allocated from owned stock, or themselves
// craftable. The memo is pre-seeded false for the in-progress id before
// recursing: the merged-by-id graph is not guaranteed acyclic even when the
// source trees were, and a self-referencing recipe must degrade to blocked
// rather than loop.
func (r *ownershipResolver) craftable(id xivdata.ItemID) bool {
	if v, ok := r.memo[id]; ok {
		return v
	}
	r.memo[id] = false

	children := r.agg.ChildEdges[id]
	if len(children) == 0 {
		return false
	}

	for childID := range children {
		if r.childCovered(childID, id) {
			continue
		}
		return false
	}

	r.memo[id] = true
	return true
}

// childCovered checks one recipe child of parent: fully satisfied, owned
// stock allocatable to this parent, or recursively craftable. Children the
// crystal toggle filtered out of the aggregation are trivially satisfied.
func (r *ownershipResolver) childCovered(childID, parentID xivdata.ItemID) bool {
	child, ok := r.agg.ByID[childID]
	if !ok {
		return true
	}
	if r.status[childID] == StatusFullySatisfied {
		return true
	}
	if r.allocated(child, parentID) {
		return true
	}
	return r.craftable(childID)
}

// allocated resolves contention on the child's owned stock: parents deeper
// in the tree claim it first, so a claim is met only when the owned
// quantity left after all strictly deeper claims still covers it.
func (r *ownershipResolver) allocated(child *AggregatedMaterial, parentID xivdata.ItemID) bool {
	stock := r.owned[child.Item.ID]
	if stock <= 0 {
		return false
	}

	matched := false
	for _, claim := range child.UsedBy {
		if claim.ParentID != parentID {
			continue
		}
		matched = true

		deeper := 0
		for _, other := range child.UsedBy {
			if other.ParentDepth > claim.ParentDepth {
				deeper += other.Quantity
			}
		}
		if stock-deeper < claim.Quantity {
			return false
		}
	}
	return matched
}

// shadowed reports whether every material parent of the aggregate is fully
// satisfied. Root items are consumers, not materials; a material used only
// by roots is never shadowed.
func (r *ownershipResolver) shadowed(mat *AggregatedMaterial) bool {
	materialParents := 0
	for _, use := range mat.UsedBy {
		if _, ok := r.agg.ByID[use.ParentID]; !ok {
			continue
		}
		materialParents++
		if r.status[use.ParentID] != StatusFullySatisfied {
			return false
		}
	}
	return materialParents > 0
}
