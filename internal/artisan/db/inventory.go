package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// InventoryStore handles node-based inventory and the transaction log.
type InventoryStore struct {
	db *DB
}

// NewInventoryStore creates a new InventoryStore.
func NewInventoryStore(db *DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// Holdings returns the quantities held for an item+rarity pair across all
// storage locations.
func (s *InventoryStore) Holdings(ctx context.Context, itemID int64, rarity artisan.Rarity) ([]artisan.InventoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location, quantity, average_cost
		FROM inventory
		WHERE item_id = ? AND rarity = ? AND quantity > 0
		ORDER BY location
	`, itemID, rarity.Name())
	if err != nil {
		return nil, fmt.Errorf("querying inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []artisan.InventoryEntry
	for rows.Next() {
		var e artisan.InventoryEntry
		if err := rows.Scan(&e.Location, &e.Quantity, &e.AverageCost); err != nil {
			return nil, fmt.Errorf("scanning inventory entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Upsert sets the quantity and average cost for an item+rarity pair at a
// location.
func (s *InventoryStore) Upsert(ctx context.Context, itemID int64, rarity artisan.Rarity, location string, quantity int, averageCost float64) error {
	if quantity < 0 {
		return fmt.Errorf("inventory quantity must be non-negative, got %d", quantity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (item_id, rarity, location, quantity, average_cost, last_updated)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(item_id, rarity, location) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			last_updated = excluded.last_updated
	`, itemID, rarity.Name(), location, quantity, averageCost)
	if err != nil {
		return fmt.Errorf("upserting inventory for item %d: %w", itemID, err)
	}
	return nil
}

// RecordTransaction appends an entry to the transaction log.
func (s *InventoryStore) RecordTransaction(ctx context.Context, txType string, itemID int64, rarity artisan.Rarity, quantity int, unitPrice, totalCost float64, location string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (type, item_id, rarity, quantity, unit_price, total_cost, location)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, txType, itemID, rarity.Name(), quantity, unitPrice, totalCost, nullable(location))
	if err != nil {
		return fmt.Errorf("recording %s transaction for item %d: %w", txType, itemID, err)
	}
	return nil
}

// ApplyCraft consumes a breakdown's components from inventory at the given
// location, adds the crafted output, and logs a craft transaction, all in
// one transaction. Component quantities never go below zero.
func (s *InventoryStore) ApplyCraft(ctx context.Context, breakdown *artisan.CostBreakdown, location string) error {
	if breakdown == nil {
		return fmt.Errorf("nil breakdown")
	}
	if location == "" {
		return fmt.Errorf("a storage location is required to apply a craft")
	}

	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		for _, comp := range breakdown.Components {
			_, err := tx.ExecContext(ctx, `
				UPDATE inventory
				SET quantity = MAX(0, quantity - ?), last_updated = datetime('now')
				WHERE item_id = ? AND rarity = ? AND location = ?
			`, comp.QuantityNeeded, comp.ItemID, comp.Rarity.Name(), location)
			if err != nil {
				return fmt.Errorf("consuming component %d: %w", comp.ItemID, err)
			}
		}

		unitCost := breakdown.CostPerUnit
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (item_id, rarity, location, quantity, average_cost, last_updated)
			VALUES (?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(item_id, rarity, location) DO UPDATE SET
				quantity = inventory.quantity + excluded.quantity,
				average_cost = excluded.average_cost,
				last_updated = excluded.last_updated
		`, breakdown.ItemID, breakdown.TargetRarity.Name(), location, breakdown.Quantity, unitCost)
		if err != nil {
			return fmt.Errorf("adding crafted output %d: %w", breakdown.ItemID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (type, item_id, rarity, quantity, unit_price, total_cost, location)
			VALUES ('craft', ?, ?, ?, ?, ?, ?)
		`, breakdown.ItemID, breakdown.TargetRarity.Name(), breakdown.Quantity, unitCost, breakdown.TotalCost, location)
		if err != nil {
			return fmt.Errorf("logging craft of item %d: %w", breakdown.ItemID, err)
		}

		return nil
	})
}
