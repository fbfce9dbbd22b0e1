package model

import (
	"time"
)

// MaxReferralLevel 推荐关系最大层级
// 超过 7 层的祖先不落库、不参与返佣，链路在第 7 层被截断
const MaxReferralLevel = 7

// MemberAncestor 推荐关系闭包表
// 每个会员注册时一次性写入其全部祖先（最多 7 层），之后不再修改：
// 上线的等级后续变化不影响已落库的层级关系，读侧永远不需要递归
type MemberAncestor struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DescendantID int64     `gorm:"uniqueIndex:uk_desc_anc;index:idx_descendant;not null" json:"descendant_id"` // 下级会员ID
	AncestorID   int64     `gorm:"uniqueIndex:uk_desc_anc;index:idx_ancestor;not null" json:"ancestor_id"`     // 上级会员ID
	Level        int       `gorm:"not null" json:"level"` // 层级，1 表示直接推荐人
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MemberAncestor) TableName() string {
	return "member_ancestor"
}

// IsValidLevel 校验层级是否在 1..MaxReferralLevel 之间
func IsValidLevel(level int) bool {
	return level >= 1 && level <= MaxReferralLevel
}
