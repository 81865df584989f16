// Package engine contains the crafting-cost business logic.
package engine

import (
	"context"
	"errors"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// Errors returned by engine operations. Both abort the calculation and are
// never retried here; retries belong to the data-fetch layer.
var (
	// ErrNotFound indicates the requested recipe or item does not exist
	// in the catalog.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a request parameter outside its allowed
	// range.
	ErrInvalidInput = errors.New("invalid input")
)

// Catalog provides read access to the item/recipe catalog. RecipeByOutput
// and Item return nil without an error when no row exists.
type Catalog interface {
	RecipeByOutput(ctx context.Context, outputItemID int64) (*artisan.Recipe, error)
	Item(ctx context.Context, itemID int64) (*artisan.Item, error)
}

// MarketHistory provides recent observed prices for an item+rarity pair,
// most recent first, limited to the given lookback window in days.
type MarketHistory interface {
	RecentPrices(ctx context.Context, itemID int64, rarity artisan.Rarity, lookbackDays int) ([]artisan.PriceRecord, error)
}

// Inventory provides the current holdings of an item+rarity pair across
// storage locations.
type Inventory interface {
	Holdings(ctx context.Context, itemID int64, rarity artisan.Rarity) ([]artisan.InventoryEntry, error)
}

// DefaultLookbackDays is the market-history window used when none is
// configured.
const DefaultLookbackDays = 7

// Engine computes crafting costs and availability over externally supplied
// catalog, market, and inventory snapshots. Every operation is a pure
// function of its inputs; the engine holds no mutable state and is safe
// for concurrent use as long as its collaborators are.
type Engine struct {
	catalog   Catalog
	market    MarketHistory
	inventory Inventory

	lookbackDays int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookbackDays overrides the market-history window used for price
// resolution.
func WithLookbackDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.lookbackDays = days
		}
	}
}

// New creates an Engine backed by the given collaborators.
func New(catalog Catalog, market MarketHistory, inventory Inventory, opts ...Option) *Engine {
	e := &Engine{
		catalog:      catalog,
		market:       market,
		inventory:    inventory,
		lookbackDays: DefaultLookbackDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
