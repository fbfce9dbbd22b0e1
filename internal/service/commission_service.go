package service

import (
	"context"
	"encoding/json"
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

var (
	ErrUnknownSeller    = errors.New("卖家会员不存在")
	ErrInvalidFeeAmount = errors.New("平台手续费不能为负")
)

type CommissionService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	memberRepo     *repository.MemberRepository
	ancestorRepo   *repository.AncestorRepository
	policyRepo     *repository.PolicyRepository
	commissionRepo *repository.CommissionRepository
	outboxRepo     *repository.OutboxRepository
}

func NewCommissionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CommissionService {
	return &CommissionService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		memberRepo:     repository.NewMemberRepository(db),
		ancestorRepo:   repository.NewAncestorRepository(db),
		policyRepo:     repository.NewPolicyRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

// uplineMember 参与返佣计算的祖先：闭包表层级 + 当前等级
type uplineMember struct {
	AncestorID int64
	Level      int
	Tier       string
}

// computeCommissions 返佣计算核心，纯函数：相同输入必然产生相同输出
//
// 【关键点】逐层判定：
// 1. 祖先自身等级解锁的最深层级 >= 它所在的层级，否则不出账
// 2. 该层级费率启用且大于 0，否则不出账（不出 0 元记录，台账保持稀疏）
// 3. 金额 = 手续费 × 费率，单条四舍五入到分，绝不在汇总后再舍入，
//    避免跨层级的舍入误差互相污染
func computeCommissions(transactionNo string, sellerID, feeAmount int64, upline []uplineMember, snapshot *model.PolicySnapshot) []*model.CommissionRecord {
	records := make([]*model.CommissionRecord, 0, len(upline))

	for _, anc := range upline {
		if anc.Level < 1 || anc.Level > model.MaxReferralLevel {
			continue
		}
		if snapshot.EligibleLevelFor(anc.Tier) < anc.Level {
			continue
		}

		rateBps := snapshot.RateFor(anc.Level)
		if rateBps <= 0 {
			continue
		}

		// 万分比计提，+5000 实现整数四舍五入
		amount := (feeAmount*rateBps + 5000) / 10000
		records = append(records, &model.CommissionRecord{
			TransactionNo: transactionNo,
			AncestorID:    anc.AncestorID,
			SellerID:      sellerID,
			Level:         anc.Level,
			RateBps:       rateBps,
			FeeAmount:     feeAmount,
			Amount:        amount,
			Status:        model.CommissionStatusSettled,
		})
	}
	return records
}

type ComputeRequest struct {
	TransactionNo string `json:"transaction_no" binding:"required"`
	SellerID      int64  `json:"seller_id" binding:"required"`
	FeeAmount     int64  `json:"fee_amount" binding:"gte=0"`
}

// Compute 试算一笔交易的返佣，只读不落库
// 卖家没有上线或没有任何祖先够格时返回空列表，这是正常结果不是错误
func (s *CommissionService) Compute(ctx context.Context, req *ComputeRequest) ([]*model.CommissionRecord, error) {
	if req.FeeAmount < 0 {
		return nil, ErrInvalidFeeAmount
	}

	exists, err := s.memberRepo.Exists(ctx, req.SellerID)
	if err != nil {
		return nil, fmt.Errorf("查询卖家失败: %w", err)
	}
	if !exists {
		return nil, ErrUnknownSeller
	}

	upline, err := s.loadUpline(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}

	// 策略快照只读一次，计算期间管理员改费率不影响本次结果
	snapshot, err := s.policyRepo.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取策略快照失败: %w", err)
	}

	return computeCommissions(req.TransactionNo, req.SellerID, req.FeeAmount, upline, snapshot), nil
}

type SettleResponse struct {
	TransactionNo string                    `json:"transaction_no"`
	Records       []*model.CommissionRecord `json:"records"`
	Duplicate     bool                      `json:"duplicate"` // true 表示本次为重复结算，返回的是已落库记录
}

// Settle 结算一笔交易的返佣：计算、落台账、写发件箱，一个事务内完成
//
// 【关键点】幂等性：
// 1. 按交易号加分布式锁，同一笔交易的并发结算串行化
// 2. 已出账的交易直接返回既有记录，不重复出账
// 3. (transaction_no, ancestor_id) 唯一索引兜底并发漏网
func (s *CommissionService) Settle(ctx context.Context, req *ComputeRequest) (*SettleResponse, error) {
	settleLock := lock.NewSettleLock(s.redisClient, req.TransactionNo)
	if err := settleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer settleLock.Unlock(ctx)

	existing, err := s.commissionRepo.ListByTransaction(ctx, req.TransactionNo)
	if err != nil {
		return nil, fmt.Errorf("查询台账失败: %w", err)
	}
	if len(existing) > 0 {
		return &SettleResponse{
			TransactionNo: req.TransactionNo,
			Records:       existing,
			Duplicate:     true,
		}, nil
	}

	records, err := s.Compute(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		log.Printf("[Commission] 无可出账祖先: transactionNo=%s, sellerID=%d", req.TransactionNo, req.SellerID)
		return &SettleResponse{TransactionNo: req.TransactionNo, Records: records}, nil
	}

	for _, record := range records {
		record.CommissionNo = idgen.GenerateCommissionNo()
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commissionRepo.BatchCreate(ctx, tx, records); err != nil {
			return err
		}

		payloadBytes, err := json.Marshal(buildSettlementPayload(req, records))
		if err != nil {
			return fmt.Errorf("序列化结算消息失败: %w", err)
		}

		outboxMsg := &model.OutboxMessage{
			MessageKey: req.TransactionNo,
			Topic:      s.cfg.Kafka.Topic.CommissionSettled,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入发件箱失败: %w", err)
		}
		return nil
	})
	if err != nil {
		// 唯一索引冲突说明并发结算已抢先落库，读出既有记录返回
		if errors.Is(err, repository.ErrDuplicateCommission) {
			existing, listErr := s.commissionRepo.ListByTransaction(ctx, req.TransactionNo)
			if listErr != nil {
				return nil, fmt.Errorf("查询台账失败: %w", listErr)
			}
			return &SettleResponse{
				TransactionNo: req.TransactionNo,
				Records:       existing,
				Duplicate:     true,
			}, nil
		}
		return nil, err
	}

	log.Printf("[Commission] 结算成功: transactionNo=%s, sellerID=%d, records=%d",
		req.TransactionNo, req.SellerID, len(records))

	return &SettleResponse{TransactionNo: req.TransactionNo, Records: records}, nil
}

// ListByBeneficiary 分页查询某会员作为受益人的返佣记录
func (s *CommissionService) ListByBeneficiary(ctx context.Context, memberID int64, page, pageSize int) ([]*model.CommissionRecord, int64, error) {
	return s.commissionRepo.ListByAncestor(ctx, memberID, page, pageSize)
}

// loadUpline 读出卖家的祖先链并补上各祖先的当前等级
func (s *CommissionService) loadUpline(ctx context.Context, sellerID int64) ([]uplineMember, error) {
	rows, err := s.ancestorRepo.ListByDescendant(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("查询上线失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ancestorIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		ancestorIDs = append(ancestorIDs, row.AncestorID)
	}

	members, err := s.memberRepo.GetByMemberIDs(ctx, ancestorIDs)
	if err != nil {
		return nil, fmt.Errorf("查询祖先会员失败: %w", err)
	}

	upline := make([]uplineMember, 0, len(rows))
	for _, row := range rows {
		member, ok := members[row.AncestorID]
		if !ok {
			// 祖先会员记录缺失（管理端删除），该层级不出账
			continue
		}
		upline = append(upline, uplineMember{
			AncestorID: row.AncestorID,
			Level:      row.Level,
			Tier:       member.Tier,
		})
	}
	return upline, nil
}

func buildSettlementPayload(req *ComputeRequest, records []*model.CommissionRecord) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		items = append(items, map[string]interface{}{
			"commission_no": r.CommissionNo,
			"ancestor_id":   r.AncestorID,
			"level":         r.Level,
			"amount":        r.Amount,
		})
	}
	return map[string]interface{}{
		"transaction_no": req.TransactionNo,
		"seller_id":      req.SellerID,
		"fee_amount":     req.FeeAmount,
		"records":        items,
		"settled_at":     time.Now().Format(time.RFC3339),
	}
}
