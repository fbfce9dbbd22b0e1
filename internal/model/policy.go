package model

import (
	"time"
)

// TierPolicy 等级策略表
// EligibleLevel 表示该等级的持有者最深可以拿到第几层的返佣
type TierPolicy struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Tier          string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"tier"`
	EligibleLevel int       `gorm:"not null" json:"eligible_level"` // 1..7
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TierPolicy) TableName() string {
	return "tier_policy"
}

// CommissionRate 层级费率表
// RateBps 为万分比（100 bps = 1%），对平台手续费计提
// IsActive 为 false 时该层级不出账，费率配置保留但不生效
type CommissionRate struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     int       `gorm:"uniqueIndex;not null" json:"level"` // 1..7
	RateBps   int64     `gorm:"not null;default:0" json:"rate_bps"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommissionRate) TableName() string {
	return "commission_rate"
}

// PolicySnapshot 策略快照
// 一次返佣计算只读取一次快照，计算过程中管理员改表不影响本次结果
type PolicySnapshot struct {
	EligibleLevels map[string]int           // tier -> 最深可得层级
	Rates          map[int]CommissionRate   // level -> 费率
}

// EligibleLevelFor 返回等级可得的最深层级，未配置的等级视为 0（拿不到任何返佣）
func (s *PolicySnapshot) EligibleLevelFor(tier string) int {
	return s.EligibleLevels[tier]
}

// RateFor 返回层级费率，未配置或停用返回 0
func (s *PolicySnapshot) RateFor(level int) int64 {
	rate, ok := s.Rates[level]
	if !ok || !rate.IsActive {
		return 0
	}
	return rate.RateBps
}
