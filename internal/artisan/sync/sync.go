// Package sync handles synchronization of catalog, market, and inventory
// data into the local store, from the remote item API or from JSON files.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mwhitt/artisan-toolbox/internal/artisan/db"
	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// Settings keys recording sync state.
const (
	keyLastAPISync = "last_api_sync"
	keyItemCount   = "items_count"
)

// DefaultSyncInterval is how stale the catalog may get before SyncFromAPI
// re-fetches without force.
const DefaultSyncInterval = 24 * time.Hour

// Syncer moves data from the remote API or JSON files into the store.
type Syncer struct {
	db        *db.DB
	catalog   *db.CatalogStore
	market    *db.MarketStore
	inventory *db.InventoryStore
	client    *Client
	logger    *slog.Logger

	interval time.Duration
	maxPages int
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithMaxPages caps how many catalog pages a sync walks.
func WithMaxPages(n int) SyncerOption {
	return func(s *Syncer) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithSyncInterval overrides how stale the catalog may get before an
// unforced sync re-fetches.
func WithSyncInterval(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewSyncer creates a Syncer. The client may be nil when only file imports
// are used.
func NewSyncer(database *db.DB, client *Client, logger *slog.Logger, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		db:        database,
		catalog:   db.NewCatalogStore(database),
		market:    db.NewMarketStore(database),
		inventory: db.NewInventoryStore(database),
		client:    client,
		logger:    logger,
		interval:  DefaultSyncInterval,
		maxPages:  200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncStats summarizes a catalog sync run.
type SyncStats struct {
	ItemsFetched int           `json:"items_fetched"`
	ItemsUpdated int           `json:"items_updated"`
	Skipped      bool          `json:"skipped"`
	Duration     time.Duration `json:"-"`
	Client       ClientStats   `json:"client"`
}

// SyncFromAPI fetches the item catalog from the remote API and upserts it
// into the store. Unless force is set, a catalog younger than the sync
// interval is left alone.
func (s *Syncer) SyncFromAPI(ctx context.Context, force bool) (*SyncStats, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no API client configured")
	}

	stats := &SyncStats{}
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	if !force {
		age, err := s.SyncAge(ctx)
		if err != nil {
			return nil, err
		}
		if age >= 0 && age < s.interval {
			s.logger.Info("catalog is fresh, skipping sync", "age", age)
			stats.Skipped = true
			return stats, nil
		}
	}

	s.logger.Info("starting catalog sync")

	imports, err := s.client.FetchAllItems(ctx, s.maxPages, !force)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	stats.ItemsFetched = len(imports)
	stats.Client = s.client.Stats()

	items := make([]artisan.Item, 0, len(imports))
	for _, imp := range imports {
		items = append(items, transformItem(imp))
	}

	updated, err := s.catalog.BulkUpsertItems(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("upserting items: %w", err)
	}
	stats.ItemsUpdated = updated

	if err := s.db.SetSetting(ctx, keyLastAPISync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := s.db.SetSetting(ctx, keyItemCount, strconv.Itoa(updated)); err != nil {
		return nil, err
	}

	s.logger.Info("catalog sync complete", "items", updated, "duration", stats.Duration)
	return stats, nil
}

// SyncAge returns how long ago the last successful sync ran, or -1 when no
// sync has happened yet.
func (s *Syncer) SyncAge(ctx context.Context) (time.Duration, error) {
	last, err := s.db.GetSetting(ctx, keyLastAPISync)
	if err != nil {
		return 0, err
	}
	if last == "" {
		return -1, nil
	}
	t, err := time.Parse(time.RFC3339, last)
	if err != nil {
		// An unreadable timestamp means a sync is due.
		return -1, nil
	}
	return time.Since(t), nil
}

// ItemImport is the tolerant wire format of a catalog item. The remote API
// has shifted field names over time, so alternates are accepted.
type ItemImport struct {
	ID         int64  `json:"id"`
	ItemID     int64  `json:"item_id,omitempty"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	BaseType   string `json:"base_type,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	Level      int    `json:"level,omitempty"`
	Profession string `json:"profession,omitempty"`
	IconURL    string `json:"icon_url,omitempty"`
}

// RecipeImport is the tolerant wire format of a recipe.
type RecipeImport struct {
	OutputItemID  int64   `json:"output_item_id"`
	Profession    string  `json:"profession"`
	LevelRequired int     `json:"level_required,omitempty"`
	BaseFee       float64 `json:"base_crafting_fee,omitempty"`

	Components []struct {
		ItemID        int64  `json:"item_id,omitempty"`
		ID            int64  `json:"id,omitempty"`
		Quantity      int    `json:"quantity"`
		ComponentType string `json:"component_type,omitempty"`
		IsOptional    bool   `json:"is_optional,omitempty"`
	} `json:"components,omitempty"`
}

// PriceImport is the wire format of a market price record.
type PriceImport struct {
	ItemID     int64     `json:"item_id"`
	Rarity     string    `json:"rarity,omitempty"`
	Price      float64   `json:"price"`
	Source     string    `json:"source,omitempty"`
	Location   string    `json:"location,omitempty"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// InventoryImport is the wire format of an inventory row.
type InventoryImport struct {
	ItemID      int64   `json:"item_id"`
	Rarity      string  `json:"rarity,omitempty"`
	Location    string  `json:"location"`
	Quantity    int     `json:"quantity"`
	AverageCost float64 `json:"average_cost,omitempty"`
}

// ImportItemsFromFile imports catalog items from a JSON file.
func (s *Syncer) ImportItemsFromFile(ctx context.Context, path string) error {
	var imports []ItemImport
	if err := readJSONFile(path, &imports); err != nil {
		return err
	}

	items := make([]artisan.Item, 0, len(imports))
	for _, imp := range imports {
		items = append(items, transformItem(imp))
	}

	updated, err := s.catalog.BulkUpsertItems(ctx, items)
	if err != nil {
		return fmt.Errorf("upserting items: %w", err)
	}

	s.logger.Info("imported items", "file", path, "count", updated)
	return nil
}

// ImportRecipesFromFile imports recipes from a JSON file.
func (s *Syncer) ImportRecipesFromFile(ctx context.Context, path string) error {
	var imports []RecipeImport
	if err := readJSONFile(path, &imports); err != nil {
		return err
	}

	recipes := make([]artisan.Recipe, 0, len(imports))
	for _, imp := range imports {
		recipes = append(recipes, transformRecipe(imp))
	}

	if err := s.catalog.BulkInsertRecipes(ctx, recipes); err != nil {
		return fmt.Errorf("inserting recipes: %w", err)
	}

	s.logger.Info("imported recipes", "file", path, "count", len(recipes))
	return nil
}

// ImportMarketPricesFromFile imports market price observations from a JSON
// file.
func (s *Syncer) ImportMarketPricesFromFile(ctx context.Context, path string) error {
	var imports []PriceImport
	if err := readJSONFile(path, &imports); err != nil {
		return err
	}

	byItem := make(map[int64][]artisan.PriceRecord)
	for _, imp := range imports {
		source := imp.Source
		if source == "" {
			source = "import"
		}
		byItem[imp.ItemID] = append(byItem[imp.ItemID], artisan.PriceRecord{
			Price:      imp.Price,
			Source:     source,
			Rarity:     artisan.ParseRarity(imp.Rarity),
			Location:   imp.Location,
			RecordedAt: imp.RecordedAt,
		})
	}

	for itemID, records := range byItem {
		if err := s.market.ImportPrices(ctx, itemID, records); err != nil {
			return err
		}
	}

	s.logger.Info("imported market prices", "file", path, "count", len(imports))
	return nil
}

// ImportInventoryFromFile imports inventory rows from a JSON file.
func (s *Syncer) ImportInventoryFromFile(ctx context.Context, path string) error {
	var imports []InventoryImport
	if err := readJSONFile(path, &imports); err != nil {
		return err
	}

	for _, imp := range imports {
		err := s.inventory.Upsert(ctx, imp.ItemID, artisan.ParseRarity(imp.Rarity), imp.Location, imp.Quantity, imp.AverageCost)
		if err != nil {
			return err
		}
	}

	s.logger.Info("imported inventory", "file", path, "count", len(imports))
	return nil
}

// transformItem converts the wire format to the domain format.
func transformItem(imp ItemImport) artisan.Item {
	id := imp.ID
	if id == 0 {
		id = imp.ItemID
	}
	itemType := imp.Type
	if itemType == "" {
		itemType = imp.BaseType
	}
	return artisan.Item{
		ID:         id,
		Name:       imp.Name,
		Type:       itemType,
		Rarity:     artisan.ParseRarity(imp.Rarity),
		Level:      imp.Level,
		Profession: imp.Profession,
		IconURL:    imp.IconURL,
	}
}

// transformRecipe converts the wire format to the domain format.
func transformRecipe(imp RecipeImport) artisan.Recipe {
	recipe := artisan.Recipe{
		OutputItemID:  imp.OutputItemID,
		Profession:    imp.Profession,
		LevelRequired: imp.LevelRequired,
		BaseFee:       imp.BaseFee,
	}

	for _, c := range imp.Components {
		itemID := c.ItemID
		if itemID == 0 {
			itemID = c.ID
		}
		if itemID == 0 {
			continue
		}
		recipe.Components = append(recipe.Components, artisan.RecipeComponent{
			ItemID:   itemID,
			Quantity: c.Quantity,
			Type:     artisan.ParseComponentType(c.ComponentType),
			Optional: c.IsOptional,
		})
	}

	return recipe
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}
