// Package artisan contains the core domain types for the artisan toolbox.
package artisan

import (
	"fmt"
	"strconv"
	"strings"
)

// Rarity is an item quality tier. Values form a total order,
// Common being the lowest and Legendary the highest.
type Rarity int

const (
	Common Rarity = iota + 1
	Uncommon
	Rare
	Heroic
	Epic
	Legendary
)

// rarityInfo holds the fixed display attributes for a rarity tier.
type rarityInfo struct {
	name        string
	displayName string
	color       string
}

var rarityTable = map[Rarity]rarityInfo{
	Common:    {"common", "Common", "#FFFFFF"},
	Uncommon:  {"uncommon", "Uncommon", "#1EFF00"},
	Rare:      {"rare", "Rare", "#0070DD"},
	Heroic:    {"heroic", "Heroic", "#A335EE"},
	Epic:      {"epic", "Epic", "#FF8000"},
	Legendary: {"legendary", "Legendary", "#E6CC80"},
}

// ParseRarity converts a string to a Rarity. Matching is case-insensitive
// against the canonical names. Empty or unrecognized input returns Common;
// parsing never fails. Callers that need to reject bad input must check
// the raw string themselves.
func ParseRarity(s string) Rarity {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Common
	}
	for r, info := range rarityTable {
		if info.name == s {
			return r
		}
	}
	return Common
}

// Valid reports whether r is one of the six defined tiers.
func (r Rarity) Valid() bool {
	_, ok := rarityTable[r]
	return ok
}

// Name returns the canonical lowercase name. Undefined values map to "common".
func (r Rarity) Name() string {
	if info, ok := rarityTable[r]; ok {
		return info.name
	}
	return rarityTable[Common].name
}

// DisplayName returns the human-readable name for the rarity.
func (r Rarity) DisplayName() string {
	if info, ok := rarityTable[r]; ok {
		return info.displayName
	}
	return rarityTable[Common].displayName
}

// Color returns the display color hex code for the rarity.
func (r Rarity) Color() string {
	if info, ok := rarityTable[r]; ok {
		return info.color
	}
	return rarityTable[Common].color
}

// String implements fmt.Stringer using the canonical name.
func (r Rarity) String() string { return r.Name() }

// MarshalText encodes the rarity as its canonical name.
func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.Name()), nil
}

// UnmarshalText decodes a rarity from its canonical name, with the same
// lenient fallback as ParseRarity.
func (r *Rarity) UnmarshalText(text []byte) error {
	*r = ParseRarity(string(text))
	return nil
}

// AllRarities returns all six tiers in ascending order.
func AllRarities() []Rarity {
	return []Rarity{Common, Uncommon, Rare, Heroic, Epic, Legendary}
}

// RarityDisplayList returns the display names of all tiers in ascending
// order, for populating selection lists.
func RarityDisplayList() []string {
	all := AllRarities()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.DisplayName()
	}
	return names
}

// CanCraftRarity reports whether the given quality-component rarities can
// produce the target rarity. Every quality component must be at least the
// target tier. The quality rating is reserved for a future rule that would
// let higher ratings substitute lower-rarity components; it currently has
// no effect.
func CanCraftRarity(componentRarities []Rarity, target Rarity, qualityRating int) bool {
	_ = qualityRating
	if len(componentRarities) == 0 {
		return false
	}
	for _, r := range componentRarities {
		if r < target {
			return false
		}
	}
	return true
}

// CraftResultRarity returns the rarity of the crafted output given the
// quality components used: the minimum component rarity, or Common when no
// quality components are present. The quality rating is a reserved no-op,
// as in CanCraftRarity.
func CraftResultRarity(componentRarities []Rarity, qualityRating int) Rarity {
	_ = qualityRating
	if len(componentRarities) == 0 {
		return Common
	}
	result := componentRarities[0]
	for _, r := range componentRarities[1:] {
		if r < result {
			result = r
		}
	}
	return result
}

// ItemKey identifies a rarity variant of a base item. Two keys with the
// same item id but different rarities are distinct economic entities for
// pricing and inventory purposes.
type ItemKey struct {
	ItemID int64
	Rarity Rarity
}

// NewItemKey builds an ItemKey for the given item and rarity.
func NewItemKey(itemID int64, rarity Rarity) ItemKey {
	return ItemKey{ItemID: itemID, Rarity: rarity}
}

// String returns the serialized "<item_id>_<rarity_rank>" form used as a
// map key for price overrides and aggregation.
func (k ItemKey) String() string {
	return fmt.Sprintf("%d_%d", k.ItemID, int(k.Rarity))
}

// ParseItemKey decodes the serialized form produced by String.
//
// Malformed input decodes to ItemKey{0, Common} instead of returning an
// error. This silent fallback is a compatibility contract inherited from
// the original tool; see DESIGN.md before changing it to a hard failure.
func ParseItemKey(s string) ItemKey {
	fallback := ItemKey{ItemID: 0, Rarity: Common}

	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return fallback
	}

	itemID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return fallback
	}
	rank, err := strconv.Atoi(parts[1])
	if err != nil {
		return fallback
	}
	rarity := Rarity(rank)
	if !rarity.Valid() {
		return fallback
	}

	return ItemKey{ItemID: itemID, Rarity: rarity}
}
