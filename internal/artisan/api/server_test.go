package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitt/artisan-toolbox/internal/artisan/db"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/engine"
	"github.com/mwhitt/artisan-toolbox/internal/artisan/sync"
	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// newTestServer builds a full server over an in-memory database seeded
// with a scroll recipe (2x Parchment + 1x Ink, base fee 5.0) and a Rare
// market price of 10.0 for Parchment and 4.0 for Ink.
func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	catalog := db.NewCatalogStore(database)
	market := db.NewMarketStore(database)
	inventory := db.NewInventoryStore(database)

	_, err = catalog.BulkUpsertItems(ctx, []artisan.Item{
		{ID: 1, Name: "Scroll", Type: "consumable", Rarity: artisan.Common, Level: 10, Profession: "scribe"},
		{ID: 101, Name: "Parchment", Type: "material", Rarity: artisan.Common, Level: 10},
		{ID: 102, Name: "Ink", Type: "material", Rarity: artisan.Common, Level: 10},
	})
	require.NoError(t, err)

	require.NoError(t, catalog.BulkInsertRecipes(ctx, []artisan.Recipe{
		{
			OutputItemID: 1,
			Profession:   "scribe",
			BaseFee:      5.0,
			Components: []artisan.RecipeComponent{
				{ItemID: 101, Quantity: 2, Type: artisan.Quality},
				{ItemID: 102, Quantity: 1, Type: artisan.Quality},
			},
		},
	}))

	require.NoError(t, market.RecordPrice(ctx, 101, artisan.Rare, 10.0, "guildie", "", time.Now().UTC()))
	require.NoError(t, market.RecordPrice(ctx, 102, artisan.Rare, 4.0, "guildie", "", time.Now().UTC()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(catalog, market, inventory)
	syncer := sync.NewSyncer(database, nil, logger)

	srv := NewServer(Deps{
		Engine:    eng,
		Catalog:   catalog,
		Market:    market,
		Inventory: inventory,
		Syncer:    syncer,
		DB:        database,
	}, logger)

	return srv, database
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCalculate(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("full breakdown", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/calculate", CalculateRequest{
			ItemID:       1,
			TargetRarity: "rare",
			Quantity:     3,
			TaxRate:      0.15,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		b := decodeBody[artisan.CostBreakdown](t, rec)
		assert.Equal(t, artisan.Rare, b.TargetRarity)
		// 6x Parchment at 10.0 + 3x Ink at 4.0.
		assert.InDelta(t, 72.0, b.MaterialCost, 1e-9)
		assert.InDelta(t, 15.0, b.BaseFeeTotal, 1e-9)
		assert.InDelta(t, 2.25, b.TaxAmount, 1e-9)
		assert.InDelta(t, 89.25, b.TotalCost, 1e-9)
		require.Len(t, b.Components, 2)
	})

	t.Run("override takes precedence", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/calculate", CalculateRequest{
			ItemID:       1,
			TargetRarity: "rare",
			Quantity:     1,
			CustomPrices: map[string]float64{"101_3": 7.0},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		b := decodeBody[artisan.CostBreakdown](t, rec)
		assert.Equal(t, "custom", b.Components[0].PriceSource)
		assert.InDelta(t, 7.0, b.Components[0].UnitPrice, 1e-9)
	})

	t.Run("unknown item is 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/calculate", CalculateRequest{
			ItemID: 999, Quantity: 1,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation failures are 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/calculate", map[string]any{
			"item_id": 1, "quantity": 0,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, srv, http.MethodPost, "/api/calculate", map[string]any{
			"item_id": 1, "quantity": 1, "tax_rate": 1.5,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calculate", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleAvailability(t *testing.T) {
	srv, database := newTestServer(t)
	ctx := context.Background()
	inventory := db.NewInventoryStore(database)

	require.NoError(t, inventory.Upsert(ctx, 101, artisan.Rare, "Winstead", 6, 0))
	require.NoError(t, inventory.Upsert(ctx, 102, artisan.Rare, "Halcyon", 3, 0))

	t.Run("aggregate holdings satisfy the craft", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/availability", AvailabilityRequest{
			CalculateRequest: CalculateRequest{ItemID: 1, TargetRarity: "rare", Quantity: 3},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[AvailabilityResponse](t, rec)
		assert.True(t, resp.Report.CanCraft)
		assert.Len(t, resp.Report.Available, 2)
	})

	t.Run("location filter exposes missing components", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/availability", AvailabilityRequest{
			CalculateRequest: CalculateRequest{ItemID: 1, TargetRarity: "rare", Quantity: 3},
			Location:         "Winstead",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[AvailabilityResponse](t, rec)
		assert.False(t, resp.Report.CanCraft)
		require.Len(t, resp.Report.Missing, 1)
		assert.Equal(t, int64(102), resp.Report.Missing[0].ItemID)
	})
}

func TestHandleCraft(t *testing.T) {
	srv, database := newTestServer(t)
	ctx := context.Background()
	inventory := db.NewInventoryStore(database)

	require.NoError(t, inventory.Upsert(ctx, 101, artisan.Rare, "Winstead", 6, 0))
	require.NoError(t, inventory.Upsert(ctx, 102, artisan.Rare, "Winstead", 3, 0))

	rec := doJSON(t, srv, http.MethodPost, "/api/craft", CraftRequest{
		CalculateRequest: CalculateRequest{ItemID: 1, TargetRarity: "rare", Quantity: 3, TaxRate: 0.15},
		Location:         "Winstead",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Components consumed, output added.
	entries, err := inventory.Holdings(ctx, 101, artisan.Rare)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = inventory.Holdings(ctx, 1, artisan.Rare)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Quantity)

	t.Run("location is required", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/craft", CraftRequest{
			CalculateRequest: CalculateRequest{ItemID: 1, Quantity: 1},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleBatchPlan(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("aggregated plan", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/batch/plan", BatchPlanRequest{
			Crafts: []BatchCraftRequest{
				{ItemID: 1, TargetRarity: "rare", Quantity: 2},
				{ItemID: 1, TargetRarity: "rare", Quantity: 1},
			},
			TaxRate: 0.15,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		plan := decodeBody[artisan.BatchPlan](t, rec)
		require.Len(t, plan.Entries, 2)
		require.Len(t, plan.Materials, 2)
		assert.Equal(t, 6, plan.Materials[0].Quantity)
		assert.Equal(t, 3, plan.Materials[1].Quantity)
	})

	t.Run("empty batch is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/batch/plan", BatchPlanRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("name match", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/items/search?q=parch", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[struct {
			Items []artisan.ItemSearchHit `json:"items"`
		}](t, rec)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, int64(101), resp.Items[0].ItemID)
	})

	t.Run("profession filter", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/items/search?q=s&profession=scribe", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[struct {
			Items []artisan.ItemSearchHit `json:"items"`
		}](t, rec)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Scroll", resp.Items[0].Name)
	})

	t.Run("missing query is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/items/search", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleMarketAnalysis(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("summary for seeded history", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/market/101/rare", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		summary := decodeBody[artisan.MarketSummary](t, rec)
		assert.Equal(t, int64(101), summary.ItemID)
		assert.Equal(t, 1, summary.DataPoints)
		assert.InDelta(t, 10.0, summary.AveragePrice, 1e-9)
		assert.Equal(t, artisan.TrendInsufficient, summary.Trend)
	})

	t.Run("no history yields no_data", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/market/101/epic", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		summary := decodeBody[artisan.MarketSummary](t, rec)
		assert.Equal(t, artisan.TrendNoData, summary.Trend)
	})

	t.Run("bad parameters are 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/market/abc/rare", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, srv, http.MethodGet, "/api/market/101/rare?days=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleRecordPrice(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/market/prices", RecordPriceRequest{
		ItemID: 101,
		Rarity: "epic",
		Price:  42.0,
		Source: "auction",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The recorded price feeds straight into cost calculations.
	calc := doJSON(t, srv, http.MethodPost, "/api/calculate", CalculateRequest{
		ItemID: 1, TargetRarity: "epic", Quantity: 1,
	})
	require.Equal(t, http.StatusOK, calc.Code)

	b := decodeBody[artisan.CostBreakdown](t, calc)
	assert.Equal(t, "market_auction", b.Components[0].PriceSource)
	assert.InDelta(t, 42.0, b.Components[0].UnitPrice, 1e-9)

	t.Run("price must be positive", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/market/prices", RecordPriceRequest{
			ItemID: 101, Price: -1, Source: "auction",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleUpsertInventory(t *testing.T) {
	srv, database := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/inventory", UpsertInventoryRequest{
		ItemID:   101,
		Rarity:   "rare",
		Location: "Winstead",
		Quantity: 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := db.NewInventoryStore(database).Holdings(context.Background(), 101, artisan.Rare)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Quantity)

	t.Run("location is required", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/inventory", UpsertInventoryRequest{
			ItemID: 101, Quantity: 4,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeBody[StatusResponse](t, rec)
	assert.Equal(t, 3, status.Items)
	assert.Equal(t, 1, status.Recipes)
	assert.Equal(t, 2, status.PriceRecords)
	assert.Equal(t, float64(-1), status.SyncAgeHours)
}
