package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

func TestResolvePrice(t *testing.T) {
	recent := []artisan.PriceRecord{
		marketRecord(12.0, "guildie", artisan.Rare, time.Hour),
		marketRecord(9.0, "auction", artisan.Rare, 48*time.Hour),
	}

	t.Run("override wins over market history", func(t *testing.T) {
		price, source := ResolvePrice(101, artisan.Rare, map[string]float64{"101_3": 7.5}, recent)
		assert.InDelta(t, 7.5, price, 1e-9)
		assert.Equal(t, SourceCustom, source)
	})

	t.Run("zero override still wins", func(t *testing.T) {
		price, source := ResolvePrice(101, artisan.Rare, map[string]float64{"101_3": 0}, recent)
		assert.Zero(t, price)
		assert.Equal(t, SourceCustom, source)
	})

	t.Run("most recent market record wins", func(t *testing.T) {
		price, source := ResolvePrice(101, artisan.Rare, nil, recent)
		assert.InDelta(t, 12.0, price, 1e-9)
		assert.Equal(t, "market_guildie", source)
	})

	t.Run("no data yields zero", func(t *testing.T) {
		price, source := ResolvePrice(101, artisan.Rare, nil, nil)
		assert.Zero(t, price)
		assert.Equal(t, SourceNoData, source)
	})

	t.Run("override keyed by other rarity is ignored", func(t *testing.T) {
		_, source := ResolvePrice(101, artisan.Epic, map[string]float64{"101_3": 7.5}, nil)
		assert.Equal(t, SourceNoData, source)
	})
}
