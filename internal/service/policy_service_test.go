package service

import (
	"testing"

	"referralsystem/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestValidateMonotonicLevels_Valid(t *testing.T) {
	levels := map[string]int{
		model.TierNone:     1,
		model.TierBronze:   1,
		model.TierSilver:   2,
		model.TierGold:     3,
		model.TierPlatinum: 5,
		model.TierTitanium: 7,
	}

	assert.NoError(t, validateMonotonicLevels(levels))
}

func TestValidateMonotonicLevels_EqualLevelsAllowed(t *testing.T) {
	levels := map[string]int{
		model.TierBronze: 3,
		model.TierSilver: 3,
		model.TierGold:   3,
	}

	assert.NoError(t, validateMonotonicLevels(levels))
}

func TestValidateMonotonicLevels_InversionRejected(t *testing.T) {
	// 金牌可得层级比银牌浅，属于配置反转
	levels := map[string]int{
		model.TierSilver: 4,
		model.TierGold:   2,
	}

	assert.Error(t, validateMonotonicLevels(levels))
}

func TestValidateMonotonicLevels_SparseConfig(t *testing.T) {
	// 只配置部分等级时，缺失的等级不参与比较
	levels := map[string]int{
		model.TierBronze:   1,
		model.TierTitanium: 7,
	}

	assert.NoError(t, validateMonotonicLevels(levels))
}
