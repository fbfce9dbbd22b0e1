package repository

import (
	"context"
	"errors"

	"referralsystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrDuplicateAncestorEntry = errors.New("闭包表记录已存在")
)

type AncestorRepository struct {
	db *gorm.DB
}

func NewAncestorRepository(db *gorm.DB) *AncestorRepository {
	return &AncestorRepository{db: db}
}

// BatchCreate 批量写入一个会员的全部祖先记录
// 必须在调用方的事务里执行，保证"全部写入或全部不写入"对外不可见中间态
func (r *AncestorRepository) BatchCreate(ctx context.Context, tx *gorm.DB, entries []*model.MemberAncestor) error {
	if len(entries) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(&entries).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAncestorEntry
		}
		return err
	}
	return nil
}

// ListByDescendant 查询会员的全部祖先，按层级升序
func (r *AncestorRepository) ListByDescendant(ctx context.Context, descendantID int64) ([]*model.MemberAncestor, error) {
	var entries []*model.MemberAncestor
	err := r.db.WithContext(ctx).
		Where("descendant_id = ?", descendantID).
		Order("level ASC").
		Find(&entries).Error
	return entries, err
}

// ListByAncestor 查询会员的全部下级，level 为 0 时不过滤层级
func (r *AncestorRepository) ListByAncestor(ctx context.Context, ancestorID int64, level int) ([]*model.MemberAncestor, error) {
	query := r.db.WithContext(ctx).Where("ancestor_id = ?", ancestorID)
	if level > 0 {
		query = query.Where("level = ?", level)
	}

	var entries []*model.MemberAncestor
	err := query.Order("level ASC, descendant_id ASC").Find(&entries).Error
	return entries, err
}

// CountByDescendant 查询会员已有的祖先记录数，用于重复注册判定
func (r *AncestorRepository) CountByDescendant(ctx context.Context, descendantID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MemberAncestor{}).
		Where("descendant_id = ?", descendantID).
		Count(&count).Error
	return count, err
}

// DeleteByDescendant 删除会员的全部祖先记录
// 正常业务不会调用，仅供管理端的会员删除流程使用
func (r *AncestorRepository) DeleteByDescendant(ctx context.Context, tx *gorm.DB, descendantID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Where("descendant_id = ?", descendantID).
		Delete(&model.MemberAncestor{}).Error
}
