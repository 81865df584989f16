package engine

import (
	"context"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// CostRequest holds the parameters of a crafting-cost calculation.
type CostRequest struct {
	// ItemID is the item to craft.
	ItemID int64
	// TargetRarity is the desired rarity of the crafted output.
	// Undefined values are normalized to Common.
	TargetRarity artisan.Rarity
	// Quantity is the number of items to craft; must be at least 1.
	Quantity int
	// TaxRate is the node tax applied to the base crafting fee,
	// in [0, 1].
	TaxRate float64
	// CustomPrices maps serialized ItemKeys to override prices.
	// Overrides take strict precedence over market history.
	CustomPrices map[string]float64
	// QualityRating is carried into the breakdown but has no effect on
	// the computation. It is reserved for a future rule that would let
	// higher ratings substitute lower-rarity components.
	QualityRating int
}

// ComputeCost calculates the full cost breakdown for crafting
// req.Quantity units of req.ItemID at req.TargetRarity.
//
// Returns ErrInvalidInput for a quantity below 1, a tax rate outside
// [0, 1], or a negative quality rating, and ErrNotFound when the catalog
// has no recipe (or an empty one) for the item. A component without price
// data never fails the calculation; it contributes zero with a "no_data"
// source tag.
func (e *Engine) ComputeCost(ctx context.Context, req CostRequest) (*artisan.CostBreakdown, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidInput, req.Quantity)
	}
	if req.TaxRate < 0 || req.TaxRate > 1 {
		return nil, fmt.Errorf("%w: tax rate must be in [0, 1], got %g", ErrInvalidInput, req.TaxRate)
	}
	if req.QualityRating < 0 {
		return nil, fmt.Errorf("%w: quality rating must be non-negative, got %d", ErrInvalidInput, req.QualityRating)
	}
	if !req.TargetRarity.Valid() {
		req.TargetRarity = artisan.Common
	}

	recipe, err := e.catalog.RecipeByOutput(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("loading recipe for item %d: %w", req.ItemID, err)
	}
	if recipe == nil || len(recipe.Components) == 0 {
		// An empty component list means no usable recipe; callers must
		// be able to tell "nothing to craft" from "craft is free".
		return nil, fmt.Errorf("%w: no recipe for item %d", ErrNotFound, req.ItemID)
	}

	breakdown := &artisan.CostBreakdown{
		ItemID:        req.ItemID,
		TargetRarity:  req.TargetRarity,
		Quantity:      req.Quantity,
		TaxRate:       req.TaxRate,
		Components:    make([]artisan.ComponentCost, 0, len(recipe.Components)),
		QualityRating: req.QualityRating,
	}

	for _, comp := range recipe.Components {
		requiredRarity := req.TargetRarity
		if comp.Type == artisan.Basic {
			requiredRarity = comp.BaseRarity
			if !requiredRarity.Valid() {
				requiredRarity = artisan.Common
			}
		}

		key := artisan.NewItemKey(comp.ItemID, requiredRarity)

		unitPrice, source := 0.0, SourceNoData
		if price, ok := req.CustomPrices[key.String()]; ok {
			unitPrice, source = price, SourceCustom
		} else {
			recent, err := e.market.RecentPrices(ctx, comp.ItemID, requiredRarity, e.lookbackDays)
			if err != nil {
				return nil, fmt.Errorf("loading prices for %s: %w", key, err)
			}
			unitPrice, source = ResolvePrice(comp.ItemID, requiredRarity, nil, recent)
		}

		needed := comp.Quantity * req.Quantity
		lineCost := unitPrice * float64(needed)
		breakdown.MaterialCost += lineCost

		breakdown.Components = append(breakdown.Components, artisan.ComponentCost{
			ItemID:         comp.ItemID,
			Name:           comp.Name,
			Rarity:         requiredRarity,
			Type:           comp.Type,
			QuantityNeeded: needed,
			UnitPrice:      unitPrice,
			TotalCost:      lineCost,
			PriceSource:    source,
			Key:            key.String(),
		})
	}

	breakdown.BaseFeeTotal = recipe.BaseFee * float64(req.Quantity)
	breakdown.TaxAmount = breakdown.BaseFeeTotal * req.TaxRate
	breakdown.TotalCost = breakdown.MaterialCost + breakdown.BaseFeeTotal + breakdown.TaxAmount
	if req.Quantity > 0 {
		breakdown.CostPerUnit = breakdown.TotalCost / float64(req.Quantity)
	}

	return breakdown, nil
}
