package repository

import (
	"context"
	"errors"

	"referralsystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrDuplicateCommission = errors.New("该交易对该祖先已出账")
)

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// BatchCreate 批量写入返佣台账
// (transaction_no, ancestor_id) 唯一索引兜底，重复出账直接报错
func (r *CommissionRepository) BatchCreate(ctx context.Context, tx *gorm.DB, records []*model.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(&records).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCommission
		}
		return err
	}
	return nil
}

// ListByTransaction 查询一笔交易已出账的全部返佣记录
func (r *CommissionRepository) ListByTransaction(ctx context.Context, transactionNo string) ([]*model.CommissionRecord, error) {
	var records []*model.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("transaction_no = ?", transactionNo).
		Order("level ASC").
		Find(&records).Error
	return records, err
}

// ExistsByTransaction 判断一笔交易是否已经出过账
func (r *CommissionRepository) ExistsByTransaction(ctx context.Context, transactionNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CommissionRecord{}).
		Where("transaction_no = ?", transactionNo).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByAncestor 分页查询某个会员作为受益人的返佣记录
func (r *CommissionRepository) ListByAncestor(ctx context.Context, ancestorID int64, page, pageSize int) ([]*model.CommissionRecord, int64, error) {
	var records []*model.CommissionRecord
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.CommissionRecord{}).
		Where("ancestor_id = ?", ancestorID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
