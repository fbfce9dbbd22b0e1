package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"referralsystem/internal/config"
	"referralsystem/internal/infrastructure/lock"
	"referralsystem/internal/model"
	"referralsystem/internal/repository"
	"referralsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type EnrollService struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cfg          *config.Config
	memberRepo   *repository.MemberRepository
	ancestorRepo *repository.AncestorRepository
}

func NewEnrollService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *EnrollService {
	return &EnrollService{
		db:           db,
		redisClient:  redisClient,
		cfg:          cfg,
		memberRepo:   repository.NewMemberRepository(db),
		ancestorRepo: repository.NewAncestorRepository(db),
	}
}

type EnrollRequest struct {
	MemberID    int64  `json:"member_id" binding:"required"`
	SponsorID   *int64 `json:"sponsor_id"`             // 直接指定推荐人ID
	SponsorCode string `json:"sponsor_code"`           // 或者用推荐码指定，两者取其一
	Tier        string `json:"tier"`                   // 初始等级，缺省为 NONE
}

type EnrollResponse struct {
	MemberID     int64  `json:"member_id"`
	SponsorID    *int64 `json:"sponsor_id,omitempty"`
	ReferralCode string `json:"referral_code"`
	UplineDepth  int    `json:"upline_depth"` // 本次落库的祖先层数
}

// deriveAncestorEntries 由推荐人自己的祖先链推导新会员的闭包表记录
//
// 【关键点】复制-平移：推荐人本身记为新会员的第 1 层，
// 推荐人的第 L 层祖先记为新会员的第 L+1 层。
// 推荐人链路中 L > 6 的祖先平移后会超过 7 层，直接丢弃 ——
// 链路被截断而不是拒绝注册，上线"满了"永远不是注册失败的理由
func deriveAncestorEntries(newMemberID, sponsorID int64, sponsorChain []*model.MemberAncestor) []*model.MemberAncestor {
	entries := make([]*model.MemberAncestor, 0, len(sponsorChain)+1)
	entries = append(entries, &model.MemberAncestor{
		DescendantID: newMemberID,
		AncestorID:   sponsorID,
		Level:        1,
	})

	for _, e := range sponsorChain {
		if e.Level >= model.MaxReferralLevel {
			continue
		}
		entries = append(entries, &model.MemberAncestor{
			DescendantID: newMemberID,
			AncestorID:   e.AncestorID,
			Level:        e.Level + 1,
		})
	}
	return entries
}

// Enroll 注册新会员并物化其祖先链
//
// 【关键点】注册需要保证：
// 1. 幂等性：同一个 member_id 只会注册一次，重复注册报错
// 2. 原子性：会员记录和全部闭包表记录同一事务落库，外部看不到半截链路
// 3. 并发安全：同一个 member_id 的并发注册用分布式锁串行化；
//    同一推荐人下的并发注册只读推荐人已有的链路，互不干扰
func (s *EnrollService) Enroll(ctx context.Context, req *EnrollRequest) (*EnrollResponse, error) {
	tier := req.Tier
	if tier == "" {
		tier = s.cfg.Business.DefaultTier
	}
	if !model.IsValidTier(tier) {
		return nil, fmt.Errorf("非法的会员等级: %s", tier)
	}

	// 解析推荐人：推荐码优先转成ID，再统一校验存在性
	sponsorID, err := s.resolveSponsor(ctx, req)
	if err != nil {
		return nil, err
	}

	enrollLock := lock.NewEnrollLock(s.redisClient, req.MemberID)
	if err := enrollLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer enrollLock.Unlock(ctx)

	// 获取锁后检查重复注册：会员记录或闭包表记录任一存在都算重复
	exists, err := s.memberRepo.Exists(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("查询会员失败: %w", err)
	}
	if exists {
		return nil, repository.ErrDuplicateMember
	}

	count, err := s.ancestorRepo.CountByDescendant(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("查询闭包表失败: %w", err)
	}
	if count > 0 {
		return nil, repository.ErrDuplicateMember
	}

	// 读推荐人当前的祖先链（只读，不加锁，读已提交即可）
	var entries []*model.MemberAncestor
	if sponsorID != nil {
		sponsorChain, err := s.ancestorRepo.ListByDescendant(ctx, *sponsorID)
		if err != nil {
			return nil, fmt.Errorf("查询推荐人链路失败: %w", err)
		}
		entries = deriveAncestorEntries(req.MemberID, *sponsorID, sponsorChain)
	}

	member := &model.Member{
		MemberID:     req.MemberID,
		SponsorID:    sponsorID,
		Tier:         tier,
		ReferralCode: idgen.GenerateReferralCode(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.memberRepo.CreateIgnoreConflict(ctx, tx, member)
		if err != nil {
			return fmt.Errorf("创建会员失败: %w", err)
		}
		if !inserted {
			return repository.ErrDuplicateMember
		}

		if err := s.ancestorRepo.BatchCreate(ctx, tx, entries); err != nil {
			if errors.Is(err, repository.ErrDuplicateAncestorEntry) {
				return repository.ErrDuplicateMember
			}
			return fmt.Errorf("写入闭包表失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var sponsorLog int64
	if sponsorID != nil {
		sponsorLog = *sponsorID
	}
	log.Printf("[Enroll] 注册成功: memberID=%d, sponsorID=%d, uplineDepth=%d",
		req.MemberID, sponsorLog, len(entries))

	return &EnrollResponse{
		MemberID:     member.MemberID,
		SponsorID:    member.SponsorID,
		ReferralCode: member.ReferralCode,
		UplineDepth:  len(entries),
	}, nil
}

func (s *EnrollService) resolveSponsor(ctx context.Context, req *EnrollRequest) (*int64, error) {
	if req.SponsorCode != "" {
		sponsor, err := s.memberRepo.GetByReferralCode(ctx, req.SponsorCode)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil, repository.ErrUnknownSponsor
			}
			return nil, fmt.Errorf("查询推荐人失败: %w", err)
		}
		return &sponsor.MemberID, nil
	}

	if req.SponsorID == nil {
		// 顶层会员（如平台自营账号），没有上线，不写闭包表
		return nil, nil
	}

	exists, err := s.memberRepo.Exists(ctx, *req.SponsorID)
	if err != nil {
		return nil, fmt.Errorf("查询推荐人失败: %w", err)
	}
	if !exists {
		return nil, repository.ErrUnknownSponsor
	}
	return req.SponsorID, nil
}
