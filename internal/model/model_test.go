package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierRank_Ordering(t *testing.T) {
	tiers := TiersByRank()
	for i := 1; i < len(tiers); i++ {
		assert.Greater(t, TierRank(tiers[i]), TierRank(tiers[i-1]))
	}
}

func TestTierRank_UnknownTier(t *testing.T) {
	assert.Equal(t, -1, TierRank("DIAMOND"))
	assert.False(t, IsValidTier("DIAMOND"))
	assert.True(t, IsValidTier(TierGold))
}

func TestIsValidLevel(t *testing.T) {
	assert.False(t, IsValidLevel(0))
	assert.True(t, IsValidLevel(1))
	assert.True(t, IsValidLevel(MaxReferralLevel))
	assert.False(t, IsValidLevel(MaxReferralLevel+1))
}

func TestPolicySnapshot_RateFor(t *testing.T) {
	snapshot := &PolicySnapshot{
		EligibleLevels: map[string]int{TierGold: 3},
		Rates: map[int]CommissionRate{
			1: {Level: 1, RateBps: 1000, IsActive: true},
			2: {Level: 2, RateBps: 500, IsActive: false},
		},
	}

	assert.Equal(t, int64(1000), snapshot.RateFor(1))
	assert.Equal(t, int64(0), snapshot.RateFor(2), "停用层级费率视为 0")
	assert.Equal(t, int64(0), snapshot.RateFor(3), "未配置层级费率视为 0")
}

func TestPolicySnapshot_EligibleLevelFor(t *testing.T) {
	snapshot := &PolicySnapshot{
		EligibleLevels: map[string]int{TierGold: 3},
	}

	assert.Equal(t, 3, snapshot.EligibleLevelFor(TierGold))
	assert.Equal(t, 0, snapshot.EligibleLevelFor(TierNone), "未配置等级拿不到任何返佣")
}
