package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// MarketStore handles market price history access.
type MarketStore struct {
	db *DB
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(db *DB) *MarketStore {
	return &MarketStore{db: db}
}

// RecordPrice stores a single observed price for an item+rarity pair.
func (s *MarketStore) RecordPrice(ctx context.Context, itemID int64, rarity artisan.Rarity, price float64, source, location string, recordedAt time.Time) error {
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_prices (item_id, rarity, price, source, location, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, itemID, rarity.Name(), price, source, nullable(location), recordedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording price for item %d: %w", itemID, err)
	}
	return nil
}

// RecentPrices returns observed prices for an item+rarity pair within the
// lookback window, most recent first.
func (s *MarketStore) RecentPrices(ctx context.Context, itemID int64, rarity artisan.Rarity, lookbackDays int) ([]artisan.PriceRecord, error) {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}

	// recorded_at is stored as RFC3339 text; render the window boundary
	// the same way so the comparison is exact, not just day-accurate.
	rows, err := s.db.QueryContext(ctx, `
		SELECT price, source, rarity, COALESCE(location, ''), recorded_at
		FROM market_prices
		WHERE item_id = ? AND rarity = ?
		  AND recorded_at > strftime('%Y-%m-%dT%H:%M:%SZ', 'now', ?)
		ORDER BY recorded_at DESC
	`, itemID, rarity.Name(), fmt.Sprintf("-%d days", lookbackDays))
	if err != nil {
		return nil, fmt.Errorf("querying recent prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []artisan.PriceRecord
	for rows.Next() {
		var (
			r          artisan.PriceRecord
			rarityName string
			recordedAt string
		)
		if err := rows.Scan(&r.Price, &r.Source, &rarityName, &r.Location, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning price record: %w", err)
		}
		r.Rarity = artisan.ParseRarity(rarityName)
		r.RecordedAt = parseTimestamp(recordedAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

// ImportPrices inserts multiple price records in a transaction.
func (s *MarketStore) ImportPrices(ctx context.Context, itemID int64, records []artisan.PriceRecord) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO market_prices (item_id, rarity, price, source, location, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing price statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			ts := r.RecordedAt
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			_, err := stmt.ExecContext(ctx,
				itemID, r.Rarity.Name(), r.Price, r.Source,
				nullable(r.Location), ts.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("inserting price for item %d: %w", itemID, err)
			}
		}

		return nil
	})
}

// PruneOldPrices removes price records older than the specified days.
func (s *MarketStore) PruneOldPrices(ctx context.Context, olderThanDays int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM market_prices
		WHERE recorded_at < strftime('%Y-%m-%dT%H:%M:%SZ', 'now', ?)
	`, fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("pruning old prices: %w", err)
	}
	return result.RowsAffected()
}

// CountPrices returns the total number of stored price records.
func (s *MarketStore) CountPrices(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_prices`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting prices: %w", err)
	}
	return count, nil
}

// parseTimestamp accepts both RFC3339 and SQLite's default datetime text.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
