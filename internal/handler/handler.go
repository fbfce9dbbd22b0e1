package handler

import (
	"errors"
	"strconv"

	"referralsystem/internal/config"
	"referralsystem/internal/repository"
	"referralsystem/internal/service"
	"referralsystem/pkg/response"
	"referralsystem/rpo"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	db                *gorm.DB
	enrollService     *service.EnrollService
	networkService    *service.NetworkService
	commissionService *service.CommissionService
	policyService     *service.PolicyService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		db:                db,
		enrollService:     service.NewEnrollService(db, rdb, cfg),
		networkService:    service.NewNetworkService(db),
		commissionService: service.NewCommissionService(db, rdb, cfg),
		policyService:     service.NewPolicyService(db),
	}
}

const maxPageSize = 100

// normalizePagination 规整分页参数
// page 至少为 1，page_size 限定在 1..maxPageSize，
// 避免 page=0 之类的参数把 OFFSET 算成负数
func normalizePagination(pageStr, pageSizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ============================================================
// 会员注册接口
// ============================================================

// EnrollMember 注册新会员并物化推荐关系
// POST /api/v1/member/enroll
func (h *Handler) EnrollMember(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.enrollService.Enroll(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownSponsor):
			response.BusinessError(c, response.CodeUnknownSponsor, err.Error())
		case errors.Is(err, repository.ErrDuplicateMember):
			response.BusinessError(c, response.CodeDuplicateMember, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, result)
}

// GetMember 查询会员信息
// GET /api/v1/member/detail?member_id=xxx
func (h *Handler) GetMember(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	member, err := h.networkService.GetMember(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, member)
}

// ============================================================
// 推荐网络查询接口
// ============================================================

// GetUpline 查询会员的上线链，按层级升序
// GET /api/v1/network/upline?member_id=xxx
func (h *Handler) GetUpline(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	entries, err := h.networkService.Upline(c.Request.Context(), memberID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"member_id": memberID,
		"upline":    entries,
	})
}

// GetDownline 查询会员的下线网络，可按层级过滤
// GET /api/v1/network/downline?member_id=xxx&level=2
func (h *Handler) GetDownline(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	level, err := strconv.Atoi(c.DefaultQuery("level", "0"))
	if err != nil {
		response.ParamError(c, "level 参数错误")
		return
	}

	result, err := h.networkService.Downline(c.Request.Context(), memberID, level)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"member_id":    memberID,
		"entries":      result.Entries,
		"level_counts": result.LevelCounts,
		"total":        result.Total,
	})
}

// ============================================================
// 返佣接口
// ============================================================

// ComputeCommission 试算一笔交易的返佣，不落库
// POST /api/v1/commission/compute
func (h *Handler) ComputeCommission(c *gin.Context) {
	var req service.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	records, err := h.commissionService.Compute(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSeller) {
			response.BusinessError(c, response.CodeUnknownSeller, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"transaction_no": req.TransactionNo,
		"records":        records,
	})
}

// SettleCommission 结算一笔交易的返佣
// POST /api/v1/commission/settle
//
// 【关键点】结算是幂等的：同一交易号重复调用返回首次落库的记录，
// 交易侧可以放心重试，不会重复出账
func (h *Handler) SettleCommission(c *gin.Context) {
	var req service.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.commissionService.Settle(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSeller) {
			response.BusinessError(c, response.CodeUnknownSeller, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// ListCommissions 分页查询会员的返佣记录
// GET /api/v1/commission/list?member_id=xxx&page=1&page_size=10
func (h *Handler) ListCommissions(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	page, pageSize := normalizePagination(c.DefaultQuery("page", "1"), c.DefaultQuery("page_size", "10"))

	records, total, err := h.commissionService.ListByBeneficiary(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCommissionTrade 查询返佣关联的交易上下文
// GET /api/v1/commission/trade?transaction_no=xxx
func (h *Handler) GetCommissionTrade(c *gin.Context) {
	transactionNo := c.Query("transaction_no")
	if transactionNo == "" {
		response.ParamError(c, "transaction_no 参数不能为空")
		return
	}

	trade, err := rpo.GetByTransactionNo(c.Request.Context(), h.db, transactionNo)
	if err != nil {
		if errors.Is(err, rpo.ErrTradeNotFound) {
			response.BusinessError(c, response.CodeNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trade)
}

// ============================================================
// 策略管理接口（管理端）
// ============================================================

// ListTierPolicies 查询全部等级策略
// GET /api/v1/policy/tier
func (h *Handler) ListTierPolicies(c *gin.Context) {
	policies, err := h.policyService.ListTierPolicies(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, policies)
}

// UpdateTierPolicyRequest 等级策略更新请求
type UpdateTierPolicyRequest struct {
	Tier          string `json:"tier" binding:"required"`
	EligibleLevel int    `json:"eligible_level" binding:"required"`
}

// UpdateTierPolicy 更新等级策略
// POST /api/v1/policy/tier
func (h *Handler) UpdateTierPolicy(c *gin.Context) {
	var req UpdateTierPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.policyService.UpdateTierPolicy(c.Request.Context(), req.Tier, req.EligibleLevel); err != nil {
		response.BusinessError(c, response.CodePolicyInvalid, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "等级策略已更新"})
}

// ListCommissionRates 查询全部层级费率
// GET /api/v1/policy/rate
func (h *Handler) ListCommissionRates(c *gin.Context) {
	rates, err := h.policyService.ListCommissionRates(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, rates)
}

// UpdateCommissionRateRequest 层级费率更新请求
type UpdateCommissionRateRequest struct {
	Level    int   `json:"level" binding:"required"`
	RateBps  int64 `json:"rate_bps" binding:"gte=0"`
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateCommissionRate 更新层级费率
// POST /api/v1/policy/rate
func (h *Handler) UpdateCommissionRate(c *gin.Context) {
	var req UpdateCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.policyService.UpdateCommissionRate(c.Request.Context(), req.Level, req.RateBps, *req.IsActive); err != nil {
		response.BusinessError(c, response.CodePolicyInvalid, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "层级费率已更新"})
}
