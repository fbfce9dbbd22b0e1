package rpo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrTradeNotFound = errors.New("交易不存在")

// Trade 已结算交易的只读视图
// 交易主数据由交易侧维护，本子系统只在返佣详情页需要它的上下文
type Trade struct {
	gorm.Model
	TransactionNo string `gorm:"uniqueIndex;not null"`
	SellerID      int64  `gorm:"index;not null"`
	BuyerID       int64  `gorm:"not null"`
	GrossAmount   int64  `gorm:"not null"` // 成交总额（分）
	FeeAmount     int64  `gorm:"not null"` // 平台手续费（分），返佣计提基数
	Status        string `gorm:"not null"`
}

func (Trade) TableName() string {
	return "trade"
}

// GetByTransactionNo 按交易号查询交易
func GetByTransactionNo(ctx context.Context, db *gorm.DB, transactionNo string) (*Trade, error) {
	var trade Trade
	err := db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}
