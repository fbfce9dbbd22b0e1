package model

import (
	"time"
)

// 会员状态等级，按成交量由运营侧升降，本子系统只读
const (
	TierNone     = "NONE"
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
	TierTitanium = "TITANIUM"
)

// tierRanks 等级序号，序号越大等级越高
// 用于校验"等级越高可解锁的返佣层级不能变浅"
var tierRanks = map[string]int{
	TierNone:     0,
	TierBronze:   1,
	TierSilver:   2,
	TierGold:     3,
	TierPlatinum: 4,
	TierTitanium: 5,
}

// TierRank 返回等级序号，未知等级返回 -1
func TierRank(tier string) int {
	rank, ok := tierRanks[tier]
	if !ok {
		return -1
	}
	return rank
}

// IsValidTier 校验等级是否合法
func IsValidTier(tier string) bool {
	_, ok := tierRanks[tier]
	return ok
}

// TiersByRank 按序号从低到高返回全部等级
func TiersByRank() []string {
	return []string{TierNone, TierBronze, TierSilver, TierGold, TierPlatinum, TierTitanium}
}

// Member 会员表
// SponsorID 在注册时写入一次，之后不再变更（推荐关系不可改）
type Member struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID     int64     `gorm:"uniqueIndex;not null" json:"member_id"`                 // 会员ID，业务方传入
	SponsorID    *int64    `gorm:"index" json:"sponsor_id"`                               // 推荐人ID，顶层会员为空
	Tier         string    `gorm:"type:varchar(20);not null;default:NONE" json:"tier"`    // 当前状态等级
	ReferralCode string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"` // 推荐码，新会员注册时凭此指定推荐人
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}
