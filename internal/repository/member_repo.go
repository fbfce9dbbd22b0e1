package repository

import (
	"context"
	"errors"

	"referralsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMemberNotFound  = errors.New("会员不存在")
	ErrDuplicateMember = errors.New("会员已存在")
	ErrUnknownSponsor  = errors.New("推荐人不存在")
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, tx *gorm.DB, member *model.Member) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(member).Error
}

func (r *MemberRepository) GetByMemberID(ctx context.Context, memberID int64) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) GetByReferralCode(ctx context.Context, code string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) Exists(ctx context.Context, memberID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Member{}).
		Where("member_id = ?", memberID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByMemberIDs 批量查询会员，返回 member_id -> Member
// 返佣计算需要一次拿到整条上线链的当前等级
func (r *MemberRepository) GetByMemberIDs(ctx context.Context, memberIDs []int64) (map[int64]*model.Member, error) {
	result := make(map[int64]*model.Member, len(memberIDs))
	if len(memberIDs) == 0 {
		return result, nil
	}

	var members []*model.Member
	err := r.db.WithContext(ctx).Where("member_id IN ?", memberIDs).Find(&members).Error
	if err != nil {
		return nil, err
	}

	for _, m := range members {
		result[m.MemberID] = m
	}
	return result, nil
}

// CreateIgnoreConflict 创建会员，member_id 冲突时不报错、不覆盖
// 返回是否真正插入了新行，用于并发注册时的重复判定
func (r *MemberRepository) CreateIgnoreConflict(ctx context.Context, tx *gorm.DB, member *model.Member) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			DoNothing: true,
		}).
		Create(member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
