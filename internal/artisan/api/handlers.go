package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitt/artisan-toolbox/internal/artisan/engine"
	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// CalculateRequest is the payload for POST /api/calculate. TargetRarity is
// a canonical rarity name; unknown names fall back to "common".
type CalculateRequest struct {
	ItemID        int64              `json:"item_id" validate:"required,gt=0"`
	TargetRarity  string             `json:"target_rarity"`
	Quantity      int                `json:"quantity" validate:"required,min=1"`
	TaxRate       float64            `json:"tax_rate" validate:"gte=0,lte=1"`
	CustomPrices  map[string]float64 `json:"custom_prices,omitempty"`
	QualityRating int                `json:"quality_rating" validate:"gte=0"`
}

func (req CalculateRequest) costRequest() engine.CostRequest {
	return engine.CostRequest{
		ItemID:        req.ItemID,
		TargetRarity:  artisan.ParseRarity(req.TargetRarity),
		Quantity:      req.Quantity,
		TaxRate:       req.TaxRate,
		CustomPrices:  req.CustomPrices,
		QualityRating: req.QualityRating,
	}
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !s.decode(w, r, &req) {
		return
	}

	breakdown, err := s.deps.Engine.ComputeCost(r.Context(), req.costRequest())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, breakdown)
}

// AvailabilityRequest is the payload for POST /api/availability. An empty
// Location checks aggregate holdings across all locations.
type AvailabilityRequest struct {
	CalculateRequest
	Location string `json:"location,omitempty"`
}

// AvailabilityResponse pairs the computed breakdown with its report.
type AvailabilityResponse struct {
	Breakdown *artisan.CostBreakdown      `json:"breakdown"`
	Report    *artisan.AvailabilityReport `json:"report"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if !s.decode(w, r, &req) {
		return
	}

	breakdown, report, err := s.deps.Engine.Availability(r.Context(), req.costRequest(), req.Location)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, AvailabilityResponse{Breakdown: breakdown, Report: report})
}

// CraftRequest is the payload for POST /api/craft: compute the cost of a
// craft and apply it to inventory at a location.
type CraftRequest struct {
	CalculateRequest
	Location string `json:"location" validate:"required"`
}

func (s *Server) handleCraft(w http.ResponseWriter, r *http.Request) {
	var req CraftRequest
	if !s.decode(w, r, &req) {
		return
	}

	breakdown, err := s.deps.Engine.ComputeCost(r.Context(), req.costRequest())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if err := s.deps.Inventory.ApplyCraft(r.Context(), breakdown, req.Location); err != nil {
		s.logger.Error("applying craft", "item_id", req.ItemID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to apply craft")
		return
	}

	s.writeJSON(w, http.StatusOK, breakdown)
}

// BatchCraftRequest is one planned craft within a batch plan request.
type BatchCraftRequest struct {
	ItemID        int64  `json:"item_id" validate:"required,gt=0"`
	TargetRarity  string `json:"target_rarity"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
	QualityRating int    `json:"quality_rating" validate:"gte=0"`
}

// BatchPlanRequest is the payload for POST /api/batch/plan.
type BatchPlanRequest struct {
	Crafts       []BatchCraftRequest `json:"crafts" validate:"required,min=1,dive"`
	TaxRate      float64             `json:"tax_rate" validate:"gte=0,lte=1"`
	CustomPrices map[string]float64  `json:"custom_prices,omitempty"`
}

func (s *Server) handleBatchPlan(w http.ResponseWriter, r *http.Request) {
	var req BatchPlanRequest
	if !s.decode(w, r, &req) {
		return
	}

	crafts := make([]artisan.BatchCraft, 0, len(req.Crafts))
	for _, c := range req.Crafts {
		crafts = append(crafts, artisan.BatchCraft{
			ItemID:        c.ItemID,
			TargetRarity:  artisan.ParseRarity(c.TargetRarity),
			Quantity:      c.Quantity,
			QualityRating: c.QualityRating,
		})
	}

	plan, err := s.deps.Engine.PlanBatch(r.Context(), engine.BatchRequest{
		Crafts:       crafts,
		TaxRate:      req.TaxRate,
		CustomPrices: req.CustomPrices,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	profession := r.URL.Query().Get("profession")

	hits, err := s.deps.Catalog.SearchItems(r.Context(), term, profession, 50)
	if err != nil {
		s.logger.Error("searching items", "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"items": hits})
}

func (s *Server) handleMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	rarity := artisan.ParseRarity(chi.URLParam(r, "rarity"))

	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		days, err = strconv.Atoi(d)
		if err != nil || days < 1 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
	}

	summary, err := s.deps.Engine.MarketAnalysis(r.Context(), itemID, rarity, days)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// RecordPriceRequest is the payload for POST /api/market/prices.
type RecordPriceRequest struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Rarity   string  `json:"rarity"`
	Price    float64 `json:"price" validate:"required,gt=0"`
	Source   string  `json:"source" validate:"required"`
	Location string  `json:"location,omitempty"`
}

func (s *Server) handleRecordPrice(w http.ResponseWriter, r *http.Request) {
	var req RecordPriceRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.deps.Market.RecordPrice(r.Context(),
		req.ItemID, artisan.ParseRarity(req.Rarity), req.Price,
		req.Source, req.Location, time.Now().UTC())
	if err != nil {
		s.logger.Error("recording price", "item_id", req.ItemID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to record price")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// UpsertInventoryRequest is the payload for POST /api/inventory.
type UpsertInventoryRequest struct {
	ItemID      int64   `json:"item_id" validate:"required,gt=0"`
	Rarity      string  `json:"rarity"`
	Location    string  `json:"location" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	AverageCost float64 `json:"average_cost" validate:"gte=0"`
}

func (s *Server) handleUpsertInventory(w http.ResponseWriter, r *http.Request) {
	var req UpsertInventoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.deps.Inventory.Upsert(r.Context(),
		req.ItemID, artisan.ParseRarity(req.Rarity), req.Location,
		req.Quantity, req.AverageCost)
	if err != nil {
		s.logger.Error("upserting inventory", "item_id", req.ItemID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to update inventory")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SyncRequest is the payload for POST /api/sync.
type SyncRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !s.decode(w, r, &req) {
		return
	}

	stats, err := s.deps.Syncer.SyncFromAPI(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("catalog sync failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "catalog sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// StatusResponse reports store counts and sync freshness.
type StatusResponse struct {
	Items        int     `json:"items"`
	Recipes      int     `json:"recipes"`
	PriceRecords int     `json:"price_records"`
	SyncAgeHours float64 `json:"sync_age_hours"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{SyncAgeHours: -1}

	var err error
	if resp.Items, err = s.deps.Catalog.CountItems(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if resp.Recipes, err = s.deps.Catalog.CountRecipes(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if resp.PriceRecords, err = s.deps.Market.CountPrices(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	age, err := s.deps.Syncer.SyncAge(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if age >= 0 {
		resp.SyncAgeHours = age.Hours()
	}

	s.writeJSON(w, http.StatusOK, resp)
}
