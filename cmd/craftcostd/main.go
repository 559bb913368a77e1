// Command craftcostd serves the crafting cost-resolution API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/craftcost/internal/api"
	"github.com/talgya/craftcost/internal/config"
	"github.com/talgya/craftcost/internal/craft"
	"github.com/talgya/craftcost/internal/market"
	"github.com/talgya/craftcost/internal/persistence"
	"github.com/talgya/craftcost/internal/xivdata"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "craftcost.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Static game data ──────────────────────────────────────────────
	store, err := xivdata.LoadFile(cfg.DataPath)
	if err != nil {
		slog.Error("failed to load game data", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Market client and pipeline ────────────────────────────────────
	prices := market.NewClient(
		cfg.Market.BaseURL,
		time.Duration(cfg.Market.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Market.CacheTTLSeconds)*time.Second,
	)
	pipeline := craft.NewPipeline(store, prices, cfg.Region)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CRAFTCOST_ADMIN_KEY not set — mutating endpoints will be disabled")
	}

	server := &api.Server{
		Data:     store,
		Store:    db,
		Engine:   pipeline,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	server.Start()

	fmt.Printf("craftcost serving %d items for region %s\n", store.ItemCount(), cfg.Region)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}
