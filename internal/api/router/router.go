package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"daypart-hub/config"
	"daypart-hub/internal/api/handler"
	"daypart-hub/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎；limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("可信代理配置无效，忽略转发头", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Operator())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.Server.MetricsPath != "" {
		r.GET(cfg.Server.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	write := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 组织节点
		nodes := v1.Group("/nodes")
		{
			nodes.POST("", write, h.Node.CreateNode)
			nodes.GET("/:id", h.Node.GetNode)
			nodes.PUT("/:id", write, h.Node.RenameNode)
			nodes.GET("/:id/children", h.Node.ListChildren)
			nodes.GET("/:id/ancestors", h.Node.ListAncestors)

			// 有效配置与单日裁决
			nodes.GET("/:id/config", h.Daypart.GetConfig)
			nodes.GET("/:id/day", h.Daypart.ResolveDay)

			// 时段定义
			defs := nodes.Group("/:id/definitions")
			{
				defs.POST("", write, h.Daypart.CreateDefinition)
				defs.PUT("/:defId", write, h.Daypart.UpdateDefinition)
				defs.DELETE("/:defId", write, h.Daypart.DeleteDefinition)
				defs.POST("/:defId/fork", write, h.Daypart.Fork)
				defs.POST("/:defId/collisions", h.Daypart.ValidateDays)
				defs.POST("/:defId/import", write, h.Daypart.ImportHolidays)

				// 排期编辑
				defs.POST("/:defId/schedules/plan", h.Daypart.PlanEdit)
				defs.POST("/:defId/schedules/apply", write, h.Daypart.ApplyEdit)
				defs.POST("/:defId/schedules/merge", write, h.Daypart.Merge)
			}

			// 导出
			nodes.GET("/:id/export/xlsx", h.Export.ExportConfig)
			nodes.GET("/:id/export/ics", h.Export.ExportEvents)
		}

		// 无状态计算
		v1.POST("/recurrence/occurrences", h.Daypart.Occurrences)
		advisor := v1.Group("/advisor")
		{
			advisor.POST("/orphaned-days", h.Daypart.OrphanedDays)
			advisor.POST("/merge-candidates", h.Daypart.MergeCandidates)
		}
	}

	return r
}
