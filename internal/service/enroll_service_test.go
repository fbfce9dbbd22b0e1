package service

import (
	"testing"

	"referralsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(descendantID int64, ancestorIDs ...int64) []*model.MemberAncestor {
	entries := make([]*model.MemberAncestor, 0, len(ancestorIDs))
	for i, id := range ancestorIDs {
		entries = append(entries, &model.MemberAncestor{
			DescendantID: descendantID,
			AncestorID:   id,
			Level:        i + 1,
		})
	}
	return entries
}

func TestDeriveAncestorEntries_SponsorWithoutUpline(t *testing.T) {
	entries := deriveAncestorEntries(100, 1, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].DescendantID)
	assert.Equal(t, int64(1), entries[0].AncestorID)
	assert.Equal(t, 1, entries[0].Level)
}

func TestDeriveAncestorEntries_CopyAndShift(t *testing.T) {
	// 推荐人 7 的上线是 6(L1), 5(L2), 4(L3)
	sponsorChain := chainOf(7, 6, 5, 4)

	entries := deriveAncestorEntries(100, 7, sponsorChain)

	require.Len(t, entries, 4)
	wantAncestors := []int64{7, 6, 5, 4}
	for i, e := range entries {
		assert.Equal(t, int64(100), e.DescendantID)
		assert.Equal(t, wantAncestors[i], e.AncestorID)
		assert.Equal(t, i+1, e.Level)
	}
}

func TestDeriveAncestorEntries_FullSevenLevelChain(t *testing.T) {
	// S1→S2→…→S7→M 的链：M 的推荐人是 S7，S7 自己有 6 层上线
	sponsorChain := chainOf(7, 6, 5, 4, 3, 2, 1)

	entries := deriveAncestorEntries(100, 7, sponsorChain)

	require.Len(t, entries, 7)
	assert.Equal(t, 1, entries[0].Level)
	assert.Equal(t, int64(7), entries[0].AncestorID)
	assert.Equal(t, 7, entries[len(entries)-1].Level)
	assert.Equal(t, int64(1), entries[len(entries)-1].AncestorID)
}

func TestDeriveAncestorEntries_TruncatesBeyondMaxLevel(t *testing.T) {
	// 推荐人已经有满 7 层上线：其第 7 层祖先平移后会到第 8 层，必须丢弃
	sponsorChain := chainOf(8, 7, 6, 5, 4, 3, 2, 1)

	entries := deriveAncestorEntries(100, 8, sponsorChain)

	require.Len(t, entries, model.MaxReferralLevel)
	for _, e := range entries {
		assert.LessOrEqual(t, e.Level, model.MaxReferralLevel)
		assert.NotEqual(t, int64(1), e.AncestorID, "第 8 跳的祖先不应被继承")
	}
}

func TestDeriveAncestorEntries_LevelsAreContiguous(t *testing.T) {
	sponsorChain := chainOf(50, 40, 30)

	entries := deriveAncestorEntries(60, 50, sponsorChain)

	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Level)
	}
}
