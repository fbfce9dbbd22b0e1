package service

import (
	"testing"

	"referralsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(eligible map[string]int, rates map[int]model.CommissionRate) *model.PolicySnapshot {
	return &model.PolicySnapshot{
		EligibleLevels: eligible,
		Rates:          rates,
	}
}

func activeRate(level int, bps int64) model.CommissionRate {
	return model.CommissionRate{Level: level, RateBps: bps, IsActive: true}
}

func TestComputeCommissions_TierGating(t *testing.T) {
	// BRONZE 只解锁 1 层，GOLD 解锁 3 层
	snapshot := snapshotWith(
		map[string]int{model.TierBronze: 1, model.TierGold: 3},
		map[int]model.CommissionRate{
			1: activeRate(1, 1000), // 10%
			2: activeRate(2, 500),  // 5%
			3: activeRate(3, 200),  // 2%
		},
	)
	upline := []uplineMember{
		{AncestorID: 1, Level: 1, Tier: model.TierGold},
		{AncestorID: 2, Level: 2, Tier: model.TierBronze}, // 层级 2 超过 BRONZE 可得层级 1
		{AncestorID: 3, Level: 3, Tier: model.TierGold},
	}

	records := computeCommissions("TX1", 9, 1000, upline, snapshot)

	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].AncestorID)
	assert.Equal(t, 1, records[0].Level)
	assert.Equal(t, int64(100), records[0].Amount)
	assert.Equal(t, int64(3), records[1].AncestorID)
	assert.Equal(t, 3, records[1].Level)
	assert.Equal(t, int64(20), records[1].Amount)
}

func TestComputeCommissions_InactiveLevelYieldsNothing(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierGold: 3},
		map[int]model.CommissionRate{
			1: activeRate(1, 1000),
			3: {Level: 3, RateBps: 200, IsActive: false},
		},
	)
	upline := []uplineMember{
		{AncestorID: 1, Level: 1, Tier: model.TierGold},
		{AncestorID: 3, Level: 3, Tier: model.TierGold},
	}

	records := computeCommissions("TX1", 9, 1000, upline, snapshot)

	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].AncestorID)
	assert.Equal(t, int64(100), records[0].Amount)
}

func TestComputeCommissions_ZeroRateYieldsNothing(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierGold: 3},
		map[int]model.CommissionRate{1: activeRate(1, 0)},
	)
	upline := []uplineMember{{AncestorID: 1, Level: 1, Tier: model.TierGold}}

	records := computeCommissions("TX1", 9, 1000, upline, snapshot)

	assert.Empty(t, records)
}

func TestComputeCommissions_RoundsHalfUpPerRecord(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierGold: 2},
		map[int]model.CommissionRate{
			1: activeRate(1, 1000), // 10%
			2: activeRate(2, 25),   // 0.25%
		},
	)
	upline := []uplineMember{
		{AncestorID: 1, Level: 1, Tier: model.TierGold},
		{AncestorID: 2, Level: 2, Tier: model.TierGold},
	}

	// 995 × 10% = 99.5 → 100（四舍五入）；995 × 0.25% = 2.4875 → 2
	records := computeCommissions("TX1", 9, 995, upline, snapshot)

	require.Len(t, records, 2)
	assert.Equal(t, int64(100), records[0].Amount)
	assert.Equal(t, int64(2), records[1].Amount)
}

func TestComputeCommissions_EmptyUpline(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierGold: 7},
		map[int]model.CommissionRate{1: activeRate(1, 1000)},
	)

	records := computeCommissions("TX1", 9, 1000, nil, snapshot)

	assert.Empty(t, records)
}

func TestComputeCommissions_UnknownTierGetsNothing(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{},
		map[int]model.CommissionRate{1: activeRate(1, 1000)},
	)
	upline := []uplineMember{{AncestorID: 1, Level: 1, Tier: "LEGACY"}}

	records := computeCommissions("TX1", 9, 1000, upline, snapshot)

	assert.Empty(t, records)
}

func TestComputeCommissions_LevelOutOfRangeSkipped(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierTitanium: 7},
		map[int]model.CommissionRate{1: activeRate(1, 1000)},
	)
	upline := []uplineMember{
		{AncestorID: 1, Level: 0, Tier: model.TierTitanium},
		{AncestorID: 2, Level: 8, Tier: model.TierTitanium},
	}

	records := computeCommissions("TX1", 9, 1000, upline, snapshot)

	assert.Empty(t, records)
}

func TestComputeCommissions_PureFunction(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierGold: 3},
		map[int]model.CommissionRate{
			1: activeRate(1, 1000),
			2: activeRate(2, 500),
			3: activeRate(3, 200),
		},
	)
	upline := []uplineMember{
		{AncestorID: 1, Level: 1, Tier: model.TierGold},
		{AncestorID: 2, Level: 2, Tier: model.TierGold},
		{AncestorID: 3, Level: 3, Tier: model.TierGold},
	}

	first := computeCommissions("TX1", 9, 12345, upline, snapshot)
	second := computeCommissions("TX1", 9, 12345, upline, snapshot)

	require.Equal(t, first, second)
}

func TestComputeCommissions_NoDuplicateAncestorPerCall(t *testing.T) {
	snapshot := snapshotWith(
		map[string]int{model.TierTitanium: 7},
		map[int]model.CommissionRate{
			1: activeRate(1, 1000), 2: activeRate(2, 500), 3: activeRate(3, 300),
			4: activeRate(4, 200), 5: activeRate(5, 100), 6: activeRate(6, 50), 7: activeRate(7, 25),
		},
	)
	upline := make([]uplineMember, 0, 7)
	for level := 1; level <= 7; level++ {
		upline = append(upline, uplineMember{AncestorID: int64(level * 10), Level: level, Tier: model.TierTitanium})
	}

	records := computeCommissions("TX1", 9, 100000, upline, snapshot)

	require.Len(t, records, 7)
	seen := make(map[int64]bool)
	for _, r := range records {
		assert.False(t, seen[r.AncestorID])
		seen[r.AncestorID] = true
	}
}
