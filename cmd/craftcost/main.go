// Command craftcost resolves the crafting cost of one item from the
// terminal: recipe tree, market prices, craft-vs-buy totals, and a
// shopping list of base materials.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/craftcost/internal/config"
	"github.com/talgya/craftcost/internal/craft"
	"github.com/talgya/craftcost/internal/market"
	"github.com/talgya/craftcost/internal/persistence"
	"github.com/talgya/craftcost/internal/xivdata"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "craftcost.yaml", "path to config file")
	quantity := flag.Int("quantity", 1, "how many to craft")
	crystals := flag.Bool("crystals", false, "include crystal catalysts")
	region := flag.String("region", "", "market region (overrides config)")
	withOwned := flag.Bool("owned", false, "mark materials against owned stock from the database")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: craftcost [flags] <item-id>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	itemID, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid item id %q\n", flag.Arg(0))
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *region != "" {
		cfg.Region = *region
	}

	store, err := xivdata.LoadFile(cfg.DataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading game data: %v\n", err)
		os.Exit(1)
	}

	prices := market.NewClient(
		cfg.Market.BaseURL,
		time.Duration(cfg.Market.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Market.CacheTTLSeconds)*time.Second,
	)
	pipeline := craft.NewPipeline(store, prices, cfg.Region)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := pipeline.Resolve(ctx, xivdata.ItemID(itemID), *quantity, *crystals)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printTree(res.Root, 0)
	fmt.Println()

	if cost := craft.EffectiveRootCost(res.Root); cost != nil {
		fmt.Printf("effective cost: %s gil\n", humanize.Comma(int64(*cost)))
	} else {
		fmt.Println("effective cost: unknown (missing prices)")
	}

	fmt.Println("\nmaterials:")
	printMaterials(res.Aggregation)

	if *withOwned {
		db, err := persistence.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		owned, err := db.OwnedQuantities()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading owned stock: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("\nownership:")
		printStatuses(res.Aggregation, craft.ResolveOwnership(res.Aggregation, owned))
	}
}

func printTree(node *craft.MaterialNode, depth int) {
	indent := strings.Repeat("  ", depth)

	line := fmt.Sprintf("%s%s x%d", indent, node.Item.Name, node.RequiredQuantity)
	if p := node.CheapestUnitPrice(); p != nil {
		line += fmt.Sprintf("  buy %s/ea", humanize.Comma(int64(p.PricePerUnit)))
		if p.World != "" {
			line += " on " + p.World
		}
	}
	if node.CraftCost != nil {
		line += fmt.Sprintf("  craft %s", humanize.Comma(int64(*node.CraftCost)))
	}
	fmt.Println(line)

	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func printMaterials(agg *craft.Aggregation) {
	depths := make([]int, 0, len(agg.ByDepth))
	for d := range agg.ByDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, d := range depths {
		fmt.Printf("  depth %d:\n", d)
		for _, m := range agg.ByDepth[d] {
			line := fmt.Sprintf("    %s x%d", m.Item.Name, m.TotalQuantity)
			if m.PriceNQ != nil {
				line += fmt.Sprintf("  nq %s", humanize.Comma(int64(m.PriceNQ.PricePerUnit)))
			}
			if m.PriceHQ != nil {
				line += fmt.Sprintf("  hq %s", humanize.Comma(int64(m.PriceHQ.PricePerUnit)))
			}
			fmt.Println(line)
		}
	}
}

func printStatuses(agg *craft.Aggregation, statuses map[xivdata.ItemID]craft.Status) {
	ids := make([]xivdata.ItemID, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		name := fmt.Sprintf("item %d", id)
		if m, ok := agg.ByID[id]; ok {
			name = m.Item.Name
		}
		fmt.Printf("  %s: %s\n", name, statuses[id])
	}
}
