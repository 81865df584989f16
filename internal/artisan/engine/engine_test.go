package engine

import (
	"context"
	"time"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// fakeCatalog serves recipes and items from in-memory maps.
type fakeCatalog struct {
	recipes map[int64]*artisan.Recipe
	items   map[int64]*artisan.Item
}

func (f *fakeCatalog) RecipeByOutput(_ context.Context, outputItemID int64) (*artisan.Recipe, error) {
	return f.recipes[outputItemID], nil
}

func (f *fakeCatalog) Item(_ context.Context, itemID int64) (*artisan.Item, error) {
	return f.items[itemID], nil
}

// fakeMarket serves price history keyed by item+rarity, most recent first.
type fakeMarket struct {
	prices map[artisan.ItemKey][]artisan.PriceRecord
}

func (f *fakeMarket) RecentPrices(_ context.Context, itemID int64, rarity artisan.Rarity, _ int) ([]artisan.PriceRecord, error) {
	return f.prices[artisan.NewItemKey(itemID, rarity)], nil
}

// fakeInventory serves holdings keyed by item+rarity.
type fakeInventory struct {
	holdings map[artisan.ItemKey][]artisan.InventoryEntry
}

func (f *fakeInventory) Holdings(_ context.Context, itemID int64, rarity artisan.Rarity) ([]artisan.InventoryEntry, error) {
	return f.holdings[artisan.NewItemKey(itemID, rarity)], nil
}

func marketRecord(price float64, source string, rarity artisan.Rarity, age time.Duration) artisan.PriceRecord {
	return artisan.PriceRecord{
		Price:      price,
		Source:     source,
		Rarity:     rarity,
		RecordedAt: time.Now().Add(-age),
	}
}
