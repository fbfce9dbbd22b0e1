package model

import (
	"time"
)

const (
	CommissionStatusSettled = "SETTLED"
	CommissionStatusPaid    = "PAID"
)

// CommissionRecord 返佣台账表
// 记录一笔交易对某个祖先产生的一条返佣，是结算给下游打款系统的依据
//
// 台账表设计原则：
// 1. 只追加，不修改金额 —— 保证对账可追溯
// 2. (transaction_no, ancestor_id) 唯一 —— 同一笔交易对同一祖先最多出账一次
// 3. 记录计算时使用的费率和层级 —— 事后改费率不影响已出账记录
type CommissionRecord struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CommissionNo  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"commission_no"`                          // 返佣单号（全局唯一）
	TransactionNo string     `gorm:"type:varchar(64);uniqueIndex:uk_tx_ancestor;index;not null" json:"transaction_no"`    // 关联交易号
	AncestorID    int64      `gorm:"uniqueIndex:uk_tx_ancestor;index;not null" json:"ancestor_id"`                        // 受益祖先
	SellerID      int64      `gorm:"index;not null" json:"seller_id"`                                                     // 卖方会员
	Level         int        `gorm:"not null" json:"level"`                                                               // 祖先相对卖方的层级
	RateBps       int64      `gorm:"not null" json:"rate_bps"`                                                            // 计提时的费率（万分比）
	FeeAmount     int64      `gorm:"not null" json:"fee_amount"`                                                          // 平台手续费（分）
	Amount        int64      `gorm:"not null" json:"amount"`                                                              // 返佣金额（分），单条四舍五入
	Status        string     `gorm:"type:varchar(20);index;not null;default:SETTLED" json:"status"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CommissionRecord) TableName() string {
	return "commission_record"
}
