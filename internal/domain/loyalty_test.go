package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor_Boundaries(t *testing.T) {
	tiers := DefaultTierThresholds
	tests := []struct {
		points int
		want   Tier
	}{
		{0, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{1999, TierSilver},
		{2000, TierGold},
		{4999, TierGold},
		{5000, TierPlatinum},
		{1 << 20, TierPlatinum},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tiers.TierFor(tt.points), "points=%d", tt.points)
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	tiers := DefaultTierThresholds
	prev := tiers.TierFor(0)
	for p := 1; p <= 6000; p++ {
		cur := tiers.TierFor(p)
		assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(), "tier dropped at %d points", p)
		prev = cur
	}
}

func TestTierThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultTierThresholds.Validate())
	assert.ErrorIs(t, TierThresholds{Silver: 500, Gold: 400, Platinum: 5000}.Validate(), ErrValidation)
	assert.ErrorIs(t, TierThresholds{}.Validate(), ErrValidation)
}
