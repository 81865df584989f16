package engine

import (
	"context"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// CheckAvailability compares a cost breakdown's component needs against
// the inventory snapshot. When location is non-empty only holdings at that
// location count; otherwise quantities are summed across all locations.
// Components keep their breakdown order within the available and missing
// partitions.
func (e *Engine) CheckAvailability(ctx context.Context, breakdown *artisan.CostBreakdown, location string) (*artisan.AvailabilityReport, error) {
	if breakdown == nil {
		return nil, fmt.Errorf("%w: nil breakdown", ErrInvalidInput)
	}

	report := &artisan.AvailabilityReport{
		CanCraft:        true,
		TotalComponents: len(breakdown.Components),
	}

	for _, comp := range breakdown.Components {
		holdings, err := e.inventory.Holdings(ctx, comp.ItemID, comp.Rarity)
		if err != nil {
			return nil, fmt.Errorf("loading inventory for %s: %w", comp.Key, err)
		}

		available := 0
		for _, h := range holdings {
			if location != "" && h.Location != location {
				continue
			}
			available += h.Quantity
		}

		ca := artisan.ComponentAvailability{
			ItemID:       comp.ItemID,
			Name:         comp.Name,
			Rarity:       comp.Rarity,
			Needed:       comp.QuantityNeeded,
			Available:    available,
			IsSufficient: available >= comp.QuantityNeeded,
		}

		if ca.IsSufficient {
			report.Available = append(report.Available, ca)
		} else {
			report.Missing = append(report.Missing, ca)
			report.CanCraft = false
		}
	}

	return report, nil
}

// Availability computes the cost breakdown for a craft and checks it
// against inventory in one call.
func (e *Engine) Availability(ctx context.Context, req CostRequest, location string) (*artisan.CostBreakdown, *artisan.AvailabilityReport, error) {
	breakdown, err := e.ComputeCost(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	report, err := e.CheckAvailability(ctx, breakdown, location)
	if err != nil {
		return nil, nil, err
	}
	return breakdown, report, nil
}
