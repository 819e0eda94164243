package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/internal/seed"
	"github.com/armahpen/backend-smilepill/internal/stores/postgres"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

func main() {
	if err := run(); err != nil {
		slog.Error("seeding failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "data/products.json", "path to the catalog feed JSON")
	reset := flag.Bool("reset", false, "wipe all business data before seeding")
	resetCatalog := flag.Bool("reset-catalog", false, "wipe only products, categories and brands before seeding")
	flag.Parse()

	_ = godotenv.Load()

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read feed file: %w", err)
	}
	var items []seed.SourceItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to parse feed file: %w", err)
	}

	db, err := postgres.OpenDB(postgres.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := catalog.NewConf(db)
	if err != nil {
		return err
	}

	switch {
	case *reset:
		slog.Info("clearing all business data")
		if err := postgres.ClearAllData(ctx, db); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	case *resetCatalog:
		// Catalog-only reset; fails on foreign keys if orders or carts
		// still reference products.
		slog.Info("clearing catalog data")
		if err := store.DeleteAllProducts(ctx); err != nil {
			return fmt.Errorf("reset catalog: %w", err)
		}
		if err := store.DeleteAllCategories(ctx); err != nil {
			return fmt.Errorf("reset catalog: %w", err)
		}
		if err := store.DeleteAllBrands(ctx); err != nil {
			return fmt.Errorf("reset catalog: %w", err)
		}
	}

	summary, err := seed.Run(ctx, store, items)
	if err != nil {
		return err
	}
	slog.Info("seeding complete",
		slog.Int("categories", summary.Categories),
		slog.Int("brands", summary.Brands),
		slog.Int("products", summary.Products),
		slog.Int("source_items", len(items)))
	return nil
}
