package service

import (
	"context"
	"sort"
	"testing"

	"referralsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUplineEntries(t *testing.T) {
	rows := chainOf(100, 7, 6, 5)

	entries := buildUplineEntries(rows)

	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, rows[i].AncestorID, e.AncestorID)
		assert.Equal(t, i+1, e.Level)
	}
}

func TestBuildDownlineResult_GroupsByLevel(t *testing.T) {
	rows := []*model.MemberAncestor{
		{DescendantID: 10, AncestorID: 1, Level: 1},
		{DescendantID: 11, AncestorID: 1, Level: 1},
		{DescendantID: 20, AncestorID: 1, Level: 2},
	}

	result := buildDownlineResult(rows)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.LevelCounts[1])
	assert.Equal(t, 1, result.LevelCounts[2])
	assert.Equal(t, 0, result.LevelCounts[3])
}

func TestBuildDownlineResult_Empty(t *testing.T) {
	result := buildDownlineResult(nil)

	assert.Empty(t, result.Entries)
	assert.Empty(t, result.LevelCounts)
	assert.Equal(t, 0, result.Total)
}

func TestDownline_RejectsInvalidLevel(t *testing.T) {
	// 非法层级在查库之前就被拒绝
	s := NewNetworkService(nil)

	_, err := s.Downline(context.Background(), 1, model.MaxReferralLevel+1)
	assert.Error(t, err)

	_, err = s.Downline(context.Background(), 1, -1)
	assert.Error(t, err)
}

// materializeChain 模拟连续注册 A→B→C→… 的链路，
// 每个新成员的闭包表记录都由其推荐人当时的链路推导而来
func materializeChain(memberIDs []int64) []*model.MemberAncestor {
	table := make([]*model.MemberAncestor, 0)
	for i := 1; i < len(memberIDs); i++ {
		newID, sponsorID := memberIDs[i], memberIDs[i-1]

		sponsorChain := make([]*model.MemberAncestor, 0)
		for _, row := range table {
			if row.DescendantID == sponsorID {
				sponsorChain = append(sponsorChain, row)
			}
		}
		sort.Slice(sponsorChain, func(a, b int) bool {
			return sponsorChain[a].Level < sponsorChain[b].Level
		})

		table = append(table, deriveAncestorEntries(newID, sponsorID, sponsorChain)...)
	}
	return table
}

func uplineOf(table []*model.MemberAncestor, descendantID int64) []UplineEntry {
	rows := make([]*model.MemberAncestor, 0)
	for _, row := range table {
		if row.DescendantID == descendantID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Level < rows[b].Level })
	return buildUplineEntries(rows)
}

func downlineOf(table []*model.MemberAncestor, ancestorID int64, level int) *DownlineResult {
	rows := make([]*model.MemberAncestor, 0)
	for _, row := range table {
		if row.AncestorID == ancestorID && (level == 0 || row.Level == level) {
			rows = append(rows, row)
		}
	}
	return buildDownlineResult(rows)
}

func TestUplineDownline_DepthCapEndToEnd(t *testing.T) {
	// 8 跳的注册链 A→B→…→H：H 的上线最多 7 条，第 8 跳的祖先不可达
	members := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	table := materializeChain(members)

	deepest := members[len(members)-1]
	upline := uplineOf(table, deepest)

	require.Len(t, upline, model.MaxReferralLevel)
	for _, e := range upline {
		assert.LessOrEqual(t, e.Level, model.MaxReferralLevel)
		assert.NotEqual(t, int64(1), e.AncestorID, "8 跳外的祖先不应出现在上线里")
	}

	// 层级正确性：第 i 层恰好是链上往回数第 i 个成员
	for i, e := range upline {
		assert.Equal(t, i+1, e.Level)
		assert.Equal(t, members[len(members)-2-i], e.AncestorID)
	}
}

func TestUplineDownline_Symmetry(t *testing.T) {
	// 对称性：每条 (descendant, ancestor, level) 既出现在下级的上线里，
	// 也出现在上级对应层级的下线里
	table := materializeChain([]int64{1, 2, 3, 4, 5})

	for _, row := range table {
		upline := uplineOf(table, row.DescendantID)
		foundInUpline := false
		for _, e := range upline {
			if e.AncestorID == row.AncestorID && e.Level == row.Level {
				foundInUpline = true
			}
		}
		assert.True(t, foundInUpline, "(%d,%d,%d) 缺失于上线视图", row.DescendantID, row.AncestorID, row.Level)

		downline := downlineOf(table, row.AncestorID, row.Level)
		foundInDownline := false
		for _, e := range downline.Entries {
			if e.DescendantID == row.DescendantID && e.Level == row.Level {
				foundInDownline = true
			}
		}
		assert.True(t, foundInDownline, "(%d,%d,%d) 缺失于下线视图", row.DescendantID, row.AncestorID, row.Level)
	}

	// 每层下线人数与链式结构一致：成员 1 在第 L 层恰有一个下级
	for level := 1; level <= 4; level++ {
		result := downlineOf(table, 1, level)
		assert.Equal(t, 1, result.LevelCounts[level])
	}
}
