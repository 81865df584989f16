package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// BatchRequest describes a set of planned crafts to be costed together.
// TaxRate and CustomPrices apply to every craft in the batch.
type BatchRequest struct {
	Crafts       []artisan.BatchCraft
	TaxRate      float64
	CustomPrices map[string]float64
}

// PlanBatch computes a cost breakdown for each planned craft and merges
// the per-component needs into one shopping list keyed by ItemKey, so the
// same material at the same rarity appears once with its combined quantity
// and cost. Any craft failing its own cost calculation fails the whole
// plan.
func (e *Engine) PlanBatch(ctx context.Context, req BatchRequest) (*artisan.BatchPlan, error) {
	if len(req.Crafts) == 0 {
		return nil, fmt.Errorf("%w: batch has no crafts", ErrInvalidInput)
	}

	plan := &artisan.BatchPlan{
		Entries: make([]artisan.BatchPlanEntry, 0, len(req.Crafts)),
	}
	totals := make(map[string]*artisan.MaterialTotal)

	for _, craft := range req.Crafts {
		breakdown, err := e.ComputeCost(ctx, CostRequest{
			ItemID:        craft.ItemID,
			TargetRarity:  craft.TargetRarity,
			Quantity:      craft.Quantity,
			TaxRate:       req.TaxRate,
			CustomPrices:  req.CustomPrices,
			QualityRating: craft.QualityRating,
		})
		if err != nil {
			return nil, fmt.Errorf("planning item %d: %w", craft.ItemID, err)
		}

		plan.Entries = append(plan.Entries, artisan.BatchPlanEntry{
			ID:        uuid.NewString(),
			Breakdown: breakdown,
		})
		plan.TotalCost += breakdown.TotalCost

		for _, comp := range breakdown.Components {
			mt, ok := totals[comp.Key]
			if !ok {
				mt = &artisan.MaterialTotal{
					Key:    comp.Key,
					ItemID: comp.ItemID,
					Name:   comp.Name,
					Rarity: comp.Rarity,
				}
				totals[comp.Key] = mt
			}
			mt.Quantity += comp.QuantityNeeded
			mt.TotalCost += comp.TotalCost
		}
	}

	plan.Materials = make([]artisan.MaterialTotal, 0, len(totals))
	for _, mt := range totals {
		plan.Materials = append(plan.Materials, *mt)
	}
	sort.Slice(plan.Materials, func(i, j int) bool {
		a, b := plan.Materials[i], plan.Materials[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Rarity < b.Rarity
	})

	return plan, nil
}
