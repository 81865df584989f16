package engine

import (
	"context"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// AnalysisLookbackDays is the default market-analysis window.
const AnalysisLookbackDays = 30

// trendSampleSize is how many records from each end of the history are
// averaged to classify the trend.
const trendSampleSize = 3

// MarketAnalysis summarizes recent price history for an item+rarity pair:
// average, minimum, maximum, and a trend obtained by comparing the newest
// records against the oldest. Fewer than six data points yield an
// "insufficient_data" trend; zero data points yield a zeroed summary with
// trend "no_data".
func (e *Engine) MarketAnalysis(ctx context.Context, itemID int64, rarity artisan.Rarity, lookbackDays int) (*artisan.MarketSummary, error) {
	if lookbackDays <= 0 {
		lookbackDays = AnalysisLookbackDays
	}
	if !rarity.Valid() {
		rarity = artisan.Common
	}

	prices, err := e.market.RecentPrices(ctx, itemID, rarity, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("loading prices for item %d: %w", itemID, err)
	}

	summary := &artisan.MarketSummary{
		ItemID: itemID,
		Rarity: rarity,
		Trend:  artisan.TrendNoData,
	}
	if len(prices) == 0 {
		return summary, nil
	}

	summary.DataPoints = len(prices)
	summary.MinPrice = prices[0].Price
	summary.MaxPrice = prices[0].Price

	var total float64
	for _, p := range prices {
		total += p.Price
		if p.Price < summary.MinPrice {
			summary.MinPrice = p.Price
		}
		if p.Price > summary.MaxPrice {
			summary.MaxPrice = p.Price
		}
	}
	summary.AveragePrice = total / float64(len(prices))
	summary.Trend = classifyTrend(prices)

	return summary, nil
}

// classifyTrend compares the average of the newest records against the
// average of the oldest. Prices are ordered most recent first.
func classifyTrend(prices []artisan.PriceRecord) string {
	if len(prices) < 2*trendSampleSize {
		return artisan.TrendInsufficient
	}

	var recent, older float64
	for i := 0; i < trendSampleSize; i++ {
		recent += prices[i].Price
		older += prices[len(prices)-1-i].Price
	}
	recent /= trendSampleSize
	older /= trendSampleSize

	switch {
	case recent > older*1.1:
		return artisan.TrendRising
	case recent < older*0.9:
		return artisan.TrendFalling
	default:
		return artisan.TrendStable
	}
}
