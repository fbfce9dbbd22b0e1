package service

import (
	"context"
	"fmt"
	"log"

	"referralsystem/internal/model"
	"referralsystem/internal/repository"

	"gorm.io/gorm"
)

type PolicyService struct {
	db         *gorm.DB
	policyRepo *repository.PolicyRepository
}

func NewPolicyService(db *gorm.DB) *PolicyService {
	return &PolicyService{
		db:         db,
		policyRepo: repository.NewPolicyRepository(db),
	}
}

func (s *PolicyService) ListTierPolicies(ctx context.Context) ([]*model.TierPolicy, error) {
	return s.policyRepo.ListTierPolicies(ctx)
}

func (s *PolicyService) ListCommissionRates(ctx context.Context) ([]*model.CommissionRate, error) {
	return s.policyRepo.ListCommissionRates(ctx)
}

// UpdateTierPolicy 更新等级策略
// 校验"等级越高可得层级不能变浅"，配错会直接反转返佣公平性，
// 这是策略表自己的职责，计算引擎不再兜底
func (s *PolicyService) UpdateTierPolicy(ctx context.Context, tier string, eligibleLevel int) error {
	if !model.IsValidTier(tier) {
		return fmt.Errorf("非法的会员等级: %s", tier)
	}
	if !model.IsValidLevel(eligibleLevel) {
		return fmt.Errorf("非法的可得层级: %d", eligibleLevel)
	}

	policies, err := s.policyRepo.ListTierPolicies(ctx)
	if err != nil {
		return fmt.Errorf("查询等级策略失败: %w", err)
	}

	levels := make(map[string]int, len(policies))
	for _, p := range policies {
		levels[p.Tier] = p.EligibleLevel
	}
	levels[tier] = eligibleLevel

	if err := validateMonotonicLevels(levels); err != nil {
		return err
	}

	return s.policyRepo.UpsertTierPolicy(ctx, &model.TierPolicy{
		Tier:          tier,
		EligibleLevel: eligibleLevel,
	})
}

// validateMonotonicLevels 校验可得层级随等级序号单调不减
func validateMonotonicLevels(levels map[string]int) error {
	prevLevel := 0
	prevTier := ""
	for _, tier := range model.TiersByRank() {
		level, ok := levels[tier]
		if !ok {
			continue
		}
		if level < prevLevel {
			return fmt.Errorf("等级 %s 的可得层级(%d)低于更低等级 %s 的可得层级(%d)",
				tier, level, prevTier, prevLevel)
		}
		prevLevel = level
		prevTier = tier
	}
	return nil
}

// UpdateCommissionRate 更新层级费率
func (s *PolicyService) UpdateCommissionRate(ctx context.Context, level int, rateBps int64, isActive bool) error {
	if !model.IsValidLevel(level) {
		return fmt.Errorf("非法的层级: %d", level)
	}
	if rateBps < 0 {
		return fmt.Errorf("费率不能为负: %d", rateBps)
	}

	return s.policyRepo.UpsertCommissionRate(ctx, &model.CommissionRate{
		Level:    level,
		RateBps:  rateBps,
		IsActive: isActive,
	})
}

// 默认策略：等级每升一档多解锁一层，费率逐层递减
var (
	defaultEligibleLevels = map[string]int{
		model.TierNone:     1,
		model.TierBronze:   1,
		model.TierSilver:   2,
		model.TierGold:     3,
		model.TierPlatinum: 5,
		model.TierTitanium: 7,
	}
	defaultRateBps = map[int]int64{
		1: 1000, // 10%
		2: 500,  // 5%
		3: 300,  // 3%
		4: 200,  // 2%
		5: 100,  // 1%
		6: 50,   // 0.5%
		7: 25,   // 0.25%
	}
)

// SeedDefaults 首次启动时写入默认策略，已有配置不覆盖
func (s *PolicyService) SeedDefaults(ctx context.Context) error {
	policies, err := s.policyRepo.ListTierPolicies(ctx)
	if err != nil {
		return err
	}
	if len(policies) == 0 {
		for _, tier := range model.TiersByRank() {
			err := s.policyRepo.UpsertTierPolicy(ctx, &model.TierPolicy{
				Tier:          tier,
				EligibleLevel: defaultEligibleLevels[tier],
			})
			if err != nil {
				return fmt.Errorf("写入默认等级策略失败: %w", err)
			}
		}
		log.Println("[Policy] 已写入默认等级策略")
	}

	rates, err := s.policyRepo.ListCommissionRates(ctx)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		for level := 1; level <= model.MaxReferralLevel; level++ {
			err := s.policyRepo.UpsertCommissionRate(ctx, &model.CommissionRate{
				Level:    level,
				RateBps:  defaultRateBps[level],
				IsActive: true,
			})
			if err != nil {
				return fmt.Errorf("写入默认费率失败: %w", err)
			}
		}
		log.Println("[Policy] 已写入默认层级费率")
	}
	return nil
}
