package engine

import (
	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// Price source tags attached to resolved component prices.
const (
	// SourceCustom marks a caller-supplied override price.
	SourceCustom = "custom"
	// SourceNoData marks a component with no override and no market
	// history. The accompanying price of 0.0 means "unknown", not
	// "free"; the aggregator lets it flow through so the line stays
	// visible for the user to override.
	SourceNoData = "no_data"
	// sourceMarketPrefix prefixes the source field of the market record
	// that supplied the price, e.g. "market_guildie".
	sourceMarketPrefix = "market_"
)

// ResolvePrice returns the unit price to use for a component at the given
// rarity, and a tag describing where the price came from.
//
// An override for the component's ItemKey takes strict precedence over any
// market data. Otherwise the most recent market record wins; recent must be
// ordered most-recent-first and pre-filtered to the caller's lookback
// window. With neither, the price is 0.0 with SourceNoData.
func ResolvePrice(itemID int64, requiredRarity artisan.Rarity, overrides map[string]float64, recent []artisan.PriceRecord) (float64, string) {
	key := artisan.NewItemKey(itemID, requiredRarity).String()
	if price, ok := overrides[key]; ok {
		return price, SourceCustom
	}
	if len(recent) > 0 {
		return recent[0].Price, sourceMarketPrefix + recent[0].Source
	}
	return 0.0, SourceNoData
}
