// Artisan Toolbox crafting-cost server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwhitt/artisan-toolbox/internal/artisan/api"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/config"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/db"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/engine"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/sync"
)

func main() {
	// Parse flags
	dbPath := flag.String("db", "", "Path to SQLite database (overrides DB_PATH)")
	addr := flag.String("addr", "", "HTTP listen address (overrides LISTEN_ADDR)")
	importItems := flag.String("import-items", "", "Import items from JSON file")
	importRecipes := flag.String("import-recipes", "", "Import recipes from JSON file")
	importMarket := flag.String("import-market", "", "Import market prices from JSON file")
	importInventory := flag.String("import-inventory", "", "Import inventory from JSON file")
	syncCatalog := flag.Bool("sync", false, "Sync the item catalog from the remote API before serving")
	serve := flag.Bool("serve", true, "Run the HTTP server after imports")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	// Setup logging
	logLevel := cfg.SlogLevel()
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()
	}()

	// Open database
	database, err := db.OpenAndInit(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	client, err := sync.NewClient(cfg.APIBaseURL, logger, sync.WithRateLimit(cfg.APIRateLimit))
	if err != nil {
		logger.Error("failed to create API client", "error", err)
		os.Exit(1)
	}
	syncer := sync.NewSyncer(database, client, logger, sync.WithMaxPages(cfg.SyncMaxPages))

	// Handle import commands
	imports := []struct {
		path string
		kind string
		fn   func(context.Context, string) error
	}{
		{*importItems, "items", syncer.ImportItemsFromFile},
		{*importRecipes, "recipes", syncer.ImportRecipesFromFile},
		{*importMarket, "market prices", syncer.ImportMarketPricesFromFile},
		{*importInventory, "inventory", syncer.ImportInventoryFromFile},
	}
	for _, imp := range imports {
		if imp.path == "" {
			continue
		}
		logger.Info("importing "+imp.kind, "file", imp.path)
		if err := imp.fn(ctx, imp.path); err != nil {
			logger.Error("failed to import "+imp.kind, "error", err)
			os.Exit(1)
		}
	}

	if *syncCatalog {
		if _, err := syncer.SyncFromAPI(ctx, false); err != nil {
			logger.Error("catalog sync failed", "error", err)
			os.Exit(1)
		}
	}

	if !*serve {
		return
	}

	// Create engine and server
	catalog := db.NewCatalogStore(database)
	market := db.NewMarketStore(database)
	inventory := db.NewInventoryStore(database)
	eng := engine.New(catalog, market, inventory, engine.WithLookbackDays(cfg.LookbackDays))

	server := api.NewServer(api.Deps{
		Engine:    eng,
		Catalog:   catalog,
		Market:    market,
		Inventory: inventory,
		Syncer:    syncer,
		DB:        database,
	}, logger)

	logger.Info("starting server", "db", cfg.DBPath, "addr", cfg.ListenAddr)
	if err := server.Run(ctx, cfg.ListenAddr); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "server stopped")
}
