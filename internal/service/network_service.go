package service

import (
	"context"
	"fmt"

	"referralsystem/internal/model"
	"referralsystem/internal/repository"

	"gorm.io/gorm"
)

// NetworkService 推荐网络读服务
// 两个查询都是对闭包表的索引查找，不做任何递归遍历
type NetworkService struct {
	db           *gorm.DB
	memberRepo   *repository.MemberRepository
	ancestorRepo *repository.AncestorRepository
}

func NewNetworkService(db *gorm.DB) *NetworkService {
	return &NetworkService{
		db:           db,
		memberRepo:   repository.NewMemberRepository(db),
		ancestorRepo: repository.NewAncestorRepository(db),
	}
}

type UplineEntry struct {
	AncestorID int64 `json:"ancestor_id"`
	Level      int   `json:"level"`
}

type DownlineEntry struct {
	DescendantID int64 `json:"descendant_id"`
	Level        int   `json:"level"`
}

type DownlineResult struct {
	Entries     []DownlineEntry `json:"entries"`
	LevelCounts map[int]int     `json:"level_counts"` // 各层级下级人数
	Total       int             `json:"total"`
}

// buildUplineEntries 把闭包表行转成上线视图，行序即层级升序
func buildUplineEntries(rows []*model.MemberAncestor) []UplineEntry {
	entries := make([]UplineEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, UplineEntry{
			AncestorID: row.AncestorID,
			Level:      row.Level,
		})
	}
	return entries
}

// buildDownlineResult 把闭包表行转成下线视图并按层级统计人数
func buildDownlineResult(rows []*model.MemberAncestor) *DownlineResult {
	result := &DownlineResult{
		Entries:     make([]DownlineEntry, 0, len(rows)),
		LevelCounts: make(map[int]int),
		Total:       len(rows),
	}
	for _, row := range rows {
		result.Entries = append(result.Entries, DownlineEntry{
			DescendantID: row.DescendantID,
			Level:        row.Level,
		})
		result.LevelCounts[row.Level]++
	}
	return result
}

// Upline 查询会员的全部祖先，按层级升序，长度 0..7
func (s *NetworkService) Upline(ctx context.Context, memberID int64) ([]UplineEntry, error) {
	rows, err := s.ancestorRepo.ListByDescendant(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("查询上线失败: %w", err)
	}
	return buildUplineEntries(rows), nil
}

// Downline 查询会员的下级网络
// level 为 0 时返回全部层级并按层级统计人数，否则只返回指定层级
func (s *NetworkService) Downline(ctx context.Context, memberID int64, level int) (*DownlineResult, error) {
	if level != 0 && !model.IsValidLevel(level) {
		return nil, fmt.Errorf("非法的层级: %d", level)
	}

	rows, err := s.ancestorRepo.ListByAncestor(ctx, memberID, level)
	if err != nil {
		return nil, fmt.Errorf("查询下线失败: %w", err)
	}
	return buildDownlineResult(rows), nil
}

// GetMember 查询会员基础信息，供前端展示推荐码和当前等级
func (s *NetworkService) GetMember(ctx context.Context, memberID int64) (*model.Member, error) {
	return s.memberRepo.GetByMemberID(ctx, memberID)
}
