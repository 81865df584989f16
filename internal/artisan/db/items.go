package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// CatalogStore handles item and recipe data access.
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Item retrieves a single catalog item by id. Returns nil when the item
// does not exist.
func (s *CatalogStore) Item(ctx context.Context, itemID int64) (*artisan.Item, error) {
	var (
		item       artisan.Item
		rarity     string
		profession sql.NullString
		iconURL    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, rarity, level, profession, icon_url
		FROM items WHERE id = ?
	`, itemID).Scan(
		&item.ID, &item.Name, &item.Type, &rarity,
		&item.Level, &profession, &iconURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}

	item.Rarity = artisan.ParseRarity(rarity)
	item.Profession = profession.String
	item.IconURL = iconURL.String

	return &item, nil
}

// SearchItems searches the catalog by name (case-insensitive partial
// match) with an optional profession filter.
func (s *CatalogStore) SearchItems(ctx context.Context, term, profession string, limit int) ([]artisan.ItemSearchHit, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, level, COALESCE(profession, '')
		FROM items
		WHERE name LIKE ?
	`
	args := []any{"%" + term + "%"}
	if profession != "" {
		query += ` AND profession = ?`
		args = append(args, profession)
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []artisan.ItemSearchHit
	for rows.Next() {
		var hit artisan.ItemSearchHit
		if err := rows.Scan(&hit.ItemID, &hit.Name, &hit.Level, &hit.Profession); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// BulkUpsertItems inserts or updates multiple catalog items in a
// transaction. Returns the number of items written.
func (s *CatalogStore) BulkUpsertItems(ctx context.Context, items []artisan.Item) (int, error) {
	count := 0
	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO items (id, name, type, rarity, level, profession, icon_url, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				rarity = excluded.rarity,
				level = excluded.level,
				profession = excluded.profession,
				icon_url = excluded.icon_url,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("preparing item statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, item := range items {
			_, err := stmt.ExecContext(ctx,
				item.ID, item.Name, item.Type, item.Rarity.Name(),
				item.Level, nullable(item.Profession), nullable(item.IconURL),
			)
			if err != nil {
				return fmt.Errorf("upserting item %d: %w", item.ID, err)
			}
			count++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountItems returns the total number of catalog items.
func (s *CatalogStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
