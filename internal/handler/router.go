package handler

import (
	"referralsystem/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 会员相关
		member := api.Group("/member")
		{
			member.POST("/enroll", h.EnrollMember)
			member.GET("/detail", h.GetMember)
		}

		// 推荐网络相关
		network := api.Group("/network")
		{
			network.GET("/upline", h.GetUpline)
			network.GET("/downline", h.GetDownline)
		}

		// 返佣相关
		commission := api.Group("/commission")
		{
			commission.POST("/compute", h.ComputeCommission)
			commission.POST("/settle", h.SettleCommission)
			commission.GET("/list", h.ListCommissions)
			commission.GET("/trade", h.GetCommissionTrade)
		}

		// 策略管理（管理端）
		policy := api.Group("/policy")
		{
			policy.GET("/tier", h.ListTierPolicies)
			policy.POST("/tier", h.UpdateTierPolicy)
			policy.GET("/rate", h.ListCommissionRates)
			policy.POST("/rate", h.UpdateCommissionRate)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
