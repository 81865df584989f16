package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitt/artisan-toolbox/internal/artisan/db"
	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

func newTestStore(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.OpenAndInit(context.Background(), ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	return database
}

func writeJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportItemsFromFile(t *testing.T) {
	ctx := context.Background()
	database := newTestStore(t)
	s := NewSyncer(database, nil, testLogger())

	path := writeJSON(t, "items.json", `[
		{"id": 101, "name": "Parchment", "type": "material", "rarity": "common", "level": 10, "profession": "scribe"},
		{"item_id": 102, "name": "Ink", "base_type": "material", "rarity": "uncommon"}
	]`)

	require.NoError(t, s.ImportItemsFromFile(ctx, path))

	catalog := db.NewCatalogStore(database)

	item, err := catalog.Item(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Parchment", item.Name)
	assert.Equal(t, "scribe", item.Profession)

	// Alternate field names are accepted.
	item, err = catalog.Item(ctx, 102)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "material", item.Type)
	assert.Equal(t, artisan.Uncommon, item.Rarity)
}

func TestImportRecipesFromFile(t *testing.T) {
	ctx := context.Background()
	database := newTestStore(t)
	s := NewSyncer(database, nil, testLogger())

	itemsPath := writeJSON(t, "items.json", `[
		{"id": 1, "name": "Scroll", "type": "consumable"},
		{"id": 101, "name": "Parchment", "type": "material"},
		{"id": 102, "name": "Ink", "type": "material", "rarity": "uncommon"}
	]`)
	require.NoError(t, s.ImportItemsFromFile(ctx, itemsPath))

	recipesPath := writeJSON(t, "recipes.json", `[
		{
			"output_item_id": 1,
			"profession": "scribe",
			"level_required": 10,
			"base_crafting_fee": 5.0,
			"components": [
				{"item_id": 101, "quantity": 2},
				{"id": 102, "quantity": 1, "component_type": "basic"}
			]
		}
	]`)
	require.NoError(t, s.ImportRecipesFromFile(ctx, recipesPath))

	recipe, err := db.NewCatalogStore(database).RecipeByOutput(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, recipe)

	assert.InDelta(t, 5.0, recipe.BaseFee, 1e-9)
	require.Len(t, recipe.Components, 2)
	assert.Equal(t, artisan.Quality, recipe.Components[0].Type)
	assert.Equal(t, int64(102), recipe.Components[1].ItemID)
	assert.Equal(t, artisan.Basic, recipe.Components[1].Type)
	assert.Equal(t, artisan.Uncommon, recipe.Components[1].BaseRarity)
}

func TestImportMarketPricesFromFile(t *testing.T) {
	ctx := context.Background()
	database := newTestStore(t)
	s := NewSyncer(database, nil, testLogger())

	itemsPath := writeJSON(t, "items.json", `[{"id": 101, "name": "Parchment", "type": "material"}]`)
	require.NoError(t, s.ImportItemsFromFile(ctx, itemsPath))

	path := writeJSON(t, "prices.json", `[
		{"item_id": 101, "rarity": "rare", "price": 10.0, "source": "guildie"},
		{"item_id": 101, "rarity": "rare", "price": 9.5}
	]`)
	require.NoError(t, s.ImportMarketPricesFromFile(ctx, path))

	records, err := db.NewMarketStore(database).RecentPrices(ctx, 101, artisan.Rare, 7)
	require.NoError(t, err)
	require.Len(t, records, 2)

	sources := []string{records[0].Source, records[1].Source}
	assert.Contains(t, sources, "guildie")
	// A missing source defaults to "import".
	assert.Contains(t, sources, "import")
}

func TestImportInventoryFromFile(t *testing.T) {
	ctx := context.Background()
	database := newTestStore(t)
	s := NewSyncer(database, nil, testLogger())

	itemsPath := writeJSON(t, "items.json", `[{"id": 101, "name": "Parchment", "type": "material"}]`)
	require.NoError(t, s.ImportItemsFromFile(ctx, itemsPath))

	path := writeJSON(t, "inventory.json", `[
		{"item_id": 101, "rarity": "rare", "location": "Winstead", "quantity": 6, "average_cost": 9.5}
	]`)
	require.NoError(t, s.ImportInventoryFromFile(ctx, path))

	entries, err := db.NewInventoryStore(database).Holdings(ctx, 101, artisan.Rare)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Quantity)
	assert.InDelta(t, 9.5, entries[0].AverageCost, 1e-9)
}

func TestImportRejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	s := NewSyncer(newTestStore(t), nil, testLogger())

	assert.Error(t, s.ImportItemsFromFile(ctx, filepath.Join(t.TempDir(), "missing.json")))

	bad := writeJSON(t, "bad.json", `{"not": "a list"`)
	assert.Error(t, s.ImportItemsFromFile(ctx, bad))
}

func TestSyncFromAPI(t *testing.T) {
	ctx := context.Background()

	srv := catalogServer(t, 2, nil)
	client := newTestClient(t, srv.URL)

	database := newTestStore(t)
	s := NewSyncer(database, client, testLogger())

	stats, err := s.SyncFromAPI(ctx, true)
	require.NoError(t, err)

	assert.False(t, stats.Skipped)
	assert.Equal(t, 4, stats.ItemsFetched)
	assert.Equal(t, 4, stats.ItemsUpdated)

	count, err := db.NewCatalogStore(database).CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	age, err := s.SyncAge(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, age, time.Duration(0))
	assert.Less(t, age, time.Minute)
}

func TestSyncFromAPIHonorsMaxPages(t *testing.T) {
	ctx := context.Background()

	srv := catalogServer(t, 5, nil)
	client := newTestClient(t, srv.URL)

	s := NewSyncer(newTestStore(t), client, testLogger(), WithMaxPages(2))

	stats, err := s.SyncFromAPI(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.ItemsFetched)
	assert.Equal(t, 4, stats.ItemsUpdated)
}

func TestSyncFromAPISkipsFreshCatalog(t *testing.T) {
	ctx := context.Background()

	srv := catalogServer(t, 1, nil)
	client := newTestClient(t, srv.URL)

	database := newTestStore(t)
	s := NewSyncer(database, client, testLogger())

	_, err := s.SyncFromAPI(ctx, true)
	require.NoError(t, err)

	stats, err := s.SyncFromAPI(ctx, false)
	require.NoError(t, err)
	assert.True(t, stats.Skipped)

	// Force overrides the staleness check.
	stats, err = s.SyncFromAPI(ctx, true)
	require.NoError(t, err)
	assert.False(t, stats.Skipped)
}

func TestSyncAgeWithoutHistory(t *testing.T) {
	s := NewSyncer(newTestStore(t), nil, testLogger())

	age, err := s.SyncAge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), age)
}

func TestTransformRecipeSkipsUnidentifiedComponents(t *testing.T) {
	recipe := transformRecipe(RecipeImport{
		OutputItemID: 1,
		Components: []struct {
			ItemID        int64  `json:"item_id,omitempty"`
			ID            int64  `json:"id,omitempty"`
			Quantity      int    `json:"quantity"`
			ComponentType string `json:"component_type,omitempty"`
			IsOptional    bool   `json:"is_optional,omitempty"`
		}{
			{ItemID: 101, Quantity: 2},
			{Quantity: 3},
		},
	})

	require.Len(t, recipe.Components, 1)
	assert.Equal(t, int64(101), recipe.Components[0].ItemID)
}
