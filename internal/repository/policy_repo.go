package repository

import (
	"context"
	"errors"

	"referralsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTierPolicyNotFound = errors.New("等级策略不存在")
	ErrRateNotFound       = errors.New("层级费率不存在")
)

type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetTierPolicy(ctx context.Context, tier string) (*model.TierPolicy, error) {
	var policy model.TierPolicy
	err := r.db.WithContext(ctx).Where("tier = ?", tier).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierPolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (r *PolicyRepository) ListTierPolicies(ctx context.Context) ([]*model.TierPolicy, error) {
	var policies []*model.TierPolicy
	err := r.db.WithContext(ctx).Order("id ASC").Find(&policies).Error
	return policies, err
}

func (r *PolicyRepository) UpsertTierPolicy(ctx context.Context, policy *model.TierPolicy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tier"}},
			DoUpdates: clause.AssignmentColumns([]string{"eligible_level"}),
		}).
		Create(policy).Error
}

func (r *PolicyRepository) GetCommissionRate(ctx context.Context, level int) (*model.CommissionRate, error) {
	var rate model.CommissionRate
	err := r.db.WithContext(ctx).Where("level = ?", level).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRateNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (r *PolicyRepository) ListCommissionRates(ctx context.Context) ([]*model.CommissionRate, error) {
	var rates []*model.CommissionRate
	err := r.db.WithContext(ctx).Order("level ASC").Find(&rates).Error
	return rates, err
}

func (r *PolicyRepository) UpsertCommissionRate(ctx context.Context, rate *model.CommissionRate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate_bps", "is_active"}),
		}).
		Create(rate).Error
}

// LoadSnapshot 一次性读出两张策略表，作为本次返佣计算的只读快照
func (r *PolicyRepository) LoadSnapshot(ctx context.Context) (*model.PolicySnapshot, error) {
	policies, err := r.ListTierPolicies(ctx)
	if err != nil {
		return nil, err
	}

	rates, err := r.ListCommissionRates(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &model.PolicySnapshot{
		EligibleLevels: make(map[string]int, len(policies)),
		Rates:          make(map[int]model.CommissionRate, len(rates)),
	}
	for _, p := range policies {
		snapshot.EligibleLevels[p.Tier] = p.EligibleLevel
	}
	for _, rt := range rates {
		snapshot.Rates[rt.Level] = *rt
	}
	return snapshot, nil
}
