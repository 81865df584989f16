package artisan

import "time"

// ============================================
// CATALOG TYPES
// ============================================

// ComponentType tags a recipe ingredient as rarity-sensitive or not.
type ComponentType string

const (
	// Quality components must match the rarity the craft is targeting.
	// Typically gathered or processed materials.
	Quality ComponentType = "quality"
	// Basic components are priced at their own fixed base rarity
	// regardless of the craft target. Typically vendor staples.
	Basic ComponentType = "basic"
)

// ParseComponentType converts a stored string to a ComponentType,
// defaulting to Quality for empty or unknown values.
func ParseComponentType(s string) ComponentType {
	if s == string(Basic) {
		return Basic
	}
	return Quality
}

// Item is a catalog entry synchronized from the remote item API.
type Item struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Rarity     Rarity `json:"rarity"`
	Level      int    `json:"level"`
	Profession string `json:"profession,omitempty"`
	IconURL    string `json:"icon_url,omitempty"`
}

// ItemSearchHit is a lightweight catalog match for search results.
type ItemSearchHit struct {
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Profession string `json:"profession,omitempty"`
}

// Recipe describes how an item is crafted.
type Recipe struct {
	ID            int64             `json:"id"`
	OutputItemID  int64             `json:"output_item_id"`
	Profession    string            `json:"profession"`
	LevelRequired int               `json:"level_required"`
	BaseFee       float64           `json:"base_crafting_fee"`
	Components    []RecipeComponent `json:"components"`
}

// RecipeComponent is a single ingredient of a recipe. Name and BaseRarity
// come from the component's catalog entry; the persistence layer fills
// them in when loading a recipe. A recipe never lists the same item twice.
type RecipeComponent struct {
	ItemID     int64         `json:"item_id"`
	Name       string        `json:"name"`
	Quantity   int           `json:"quantity"`
	Type       ComponentType `json:"component_type"`
	BaseRarity Rarity        `json:"base_rarity"`
	Optional   bool          `json:"is_optional,omitempty"`
}

// ============================================
// MARKET TYPES
// ============================================

// PriceRecord is a single observed market price for an item+rarity pair.
type PriceRecord struct {
	Price      float64   `json:"price"`
	Source     string    `json:"source"`
	Rarity     Rarity    `json:"rarity"`
	Location   string    `json:"location,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MarketSummary aggregates recent price history for an item+rarity pair.
type MarketSummary struct {
	ItemID       int64   `json:"item_id"`
	Rarity       Rarity  `json:"rarity"`
	AveragePrice float64 `json:"average_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	DataPoints   int     `json:"data_points"`
	Trend        string  `json:"price_trend"`
}

// Price trend classifications reported by market analysis.
const (
	TrendRising       = "rising"
	TrendFalling      = "falling"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
	TrendNoData       = "no_data"
)

// ============================================
// COST BREAKDOWN TYPES
// ============================================

// ComponentCost is one line of a cost breakdown.
type ComponentCost struct {
	ItemID         int64         `json:"item_id"`
	Name           string        `json:"name"`
	Rarity         Rarity        `json:"rarity"`
	Type           ComponentType `json:"component_type"`
	QuantityNeeded int           `json:"quantity_needed"`
	UnitPrice      float64       `json:"unit_price"`
	TotalCost      float64       `json:"total_cost"`
	PriceSource    string        `json:"price_source"`
	Key            string        `json:"component_key"`
}

// CostBreakdown is the full itemized result of a crafting-cost
// calculation. It is created fresh per request and never mutated; any
// parameter change triggers a recomputation.
type CostBreakdown struct {
	ItemID        int64           `json:"item_id"`
	TargetRarity  Rarity          `json:"target_rarity"`
	Quantity      int             `json:"quantity"`
	TaxRate       float64         `json:"tax_rate"`
	Components    []ComponentCost `json:"components"`
	MaterialCost  float64         `json:"material_cost"`
	BaseFeeTotal  float64         `json:"base_crafting_fee"`
	TaxAmount     float64         `json:"tax_amount"`
	TotalCost     float64         `json:"total_cost"`
	CostPerUnit   float64         `json:"cost_per_unit"`
	QualityRating int             `json:"quality_rating"`
}

// ============================================
// AVAILABILITY TYPES
// ============================================

// InventoryEntry is the quantity of an item+rarity held at one location.
type InventoryEntry struct {
	Location    string  `json:"location"`
	Quantity    int     `json:"quantity"`
	AverageCost float64 `json:"average_cost,omitempty"`
}

// ComponentAvailability compares a breakdown line against inventory.
type ComponentAvailability struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	Rarity       Rarity `json:"rarity"`
	Needed       int    `json:"needed_quantity"`
	Available    int    `json:"available_quantity"`
	IsSufficient bool   `json:"is_sufficient"`
}

// AvailabilityReport is the result of checking a cost breakdown against
// an inventory snapshot. Components appear in breakdown order.
type AvailabilityReport struct {
	CanCraft        bool                    `json:"can_craft"`
	Available       []ComponentAvailability `json:"available_components"`
	Missing         []ComponentAvailability `json:"missing_components"`
	TotalComponents int                     `json:"total_components"`
}

// ============================================
// BATCH PLANNING TYPES
// ============================================

// BatchCraft is one planned craft within a batch.
type BatchCraft struct {
	ItemID        int64  `json:"item_id"`
	TargetRarity  Rarity `json:"target_rarity"`
	Quantity      int    `json:"quantity"`
	QualityRating int    `json:"quality_rating,omitempty"`
}

// BatchPlanEntry pairs a planned craft with its computed breakdown.
type BatchPlanEntry struct {
	ID        string         `json:"id"`
	Breakdown *CostBreakdown `json:"breakdown"`
}

// MaterialTotal is the aggregated need for one item+rarity across a batch.
type MaterialTotal struct {
	Key       string  `json:"component_key"`
	ItemID    int64   `json:"item_id"`
	Name      string  `json:"name"`
	Rarity    Rarity  `json:"rarity"`
	Quantity  int     `json:"quantity"`
	TotalCost float64 `json:"total_cost"`
}

// BatchPlan is the combined shopping list and cost summary for a set of
// planned crafts.
type BatchPlan struct {
	Entries   []BatchPlanEntry `json:"entries"`
	Materials []MaterialTotal  `json:"materials"`
	TotalCost float64          `json:"total_cost"`
}
