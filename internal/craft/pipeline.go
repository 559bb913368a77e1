package craft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/craftcost/internal/market"
	"github.com/talgya/craftcost/internal/xivdata"
)

// ErrSuperseded is returned when a newer refresh started while this one was
// in flight; the stale result is discarded, never committed.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// ErrUnknownItem is returned when the root item is not in the static
// database.
var ErrUnknownItem = errors.New("unknown item")

// PriceSource is the batched market lookup the pipeline depends on.
type PriceSource interface {
	GetMultiple(ctx context.Context, region string, ids []xivdata.ItemID) (map[xivdata.ItemID]market.Snapshot, error)
}

// Result is one complete resolution: the priced and costed tree plus its
// aggregated material view.
type Result struct {
	Root        *MaterialNode
	Aggregation *Aggregation
	Region      string
	FetchedAt   time.Time
}

// Pipeline runs the full build → price → cost → aggregate sequence. Each
// run owns its tree and aggregates outright; the only cross-run state is
// the generation counter used to discard superseded refreshes.
type Pipeline struct {
	Source RecipeSource
	Prices PriceSource
	Region string

	generation atomic.Uint64
}

// NewPipeline wires a pipeline over the static database and price source.
func NewPipeline(source RecipeSource, prices PriceSource, region string) *Pipeline {
	return &Pipeline{Source: source, Prices: prices, Region: region}
}

// Resolve builds, prices, and costs the tree for one root item. A failed
// price fetch fails the whole refresh; the caller keeps whatever result it
// was already holding and may retry. If a newer Resolve starts before this
// one finishes, this one returns ErrSuperseded instead of a stale result.
func (p *Pipeline) Resolve(ctx context.Context, itemID xivdata.ItemID, quantity int, showCrystals bool) (*Result, error) {
	gen := p.generation.Add(1)

	builder := NewBuilder(p.Source, showCrystals)
	root := builder.Build(itemID, quantity)
	if root == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrUnknownItem)
	}

	snapshots, err := p.Prices.GetMultiple(ctx, p.Region, root.ItemIDs())
	if err != nil {
		return nil, fmt.Errorf("price refresh for item %d: %w", itemID, err)
	}

	ApplyPrices(root, snapshots)
	CalculateCosts(root)
	agg := Aggregate([]*MaterialNode{root}, showCrystals)

	// Commit only if no newer refresh started while this one was fetching.
	if p.generation.Load() != gen {
		slog.Debug("discarding superseded refresh", "item", itemID, "generation", gen)
		return nil, ErrSuperseded
	}

	return &Result{
		Root:        root,
		Aggregation: agg,
		Region:      p.Region,
		FetchedAt:   time.Now(),
	}, nil
}

// ResolveMany builds and prices trees for several root items in one batch,
// aggregating their materials together — the shopping-list view of a whole
// crafting list.
func (p *Pipeline) ResolveMany(ctx context.Context, entries []ListEntry, showCrystals bool) (*MultiResult, error) {
	gen := p.generation.Add(1)

	var roots []*MaterialNode
	var ids []xivdata.ItemID
	seen := make(map[xivdata.ItemID]bool)

	for _, e := range entries {
		builder := NewBuilder(p.Source, showCrystals)
		root := builder.Build(e.ItemID, e.Quantity)
		if root == nil {
			slog.Warn("skipping unknown list entry", "item", e.ItemID)
			continue
		}
		roots = append(roots, root)
		for _, id := range root.ItemIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no buildable entries: %w", ErrUnknownItem)
	}

	snapshots, err := p.Prices.GetMultiple(ctx, p.Region, ids)
	if err != nil {
		return nil, fmt.Errorf("price refresh for list: %w", err)
	}

	for _, root := range roots {
		ApplyPrices(root, snapshots)
		CalculateCosts(root)
	}
	agg := Aggregate(roots, showCrystals)

	if p.generation.Load() != gen {
		return nil, ErrSuperseded
	}

	return &MultiResult{
		Roots:       roots,
		Aggregation: agg,
		Region:      p.Region,
		FetchedAt:   time.Now(),
	}, nil
}

// ListEntry is one root item requested by a crafting list.
type ListEntry struct {
	ItemID   xivdata.ItemID
	Quantity int
}

// MultiResult is the resolution of a whole list of root items sharing one
// aggregation.
type MultiResult struct {
	Roots       []*MaterialNode
	Aggregation *Aggregation
	Region      string
	FetchedAt   time.Time
}
