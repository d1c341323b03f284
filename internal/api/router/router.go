package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/config"
	"github.com/reinieltalplacido/classalign/internal/api/handler"
	"github.com/reinieltalplacido/classalign/internal/api/middleware"
	"github.com/reinieltalplacido/classalign/pkg/jwt"
	"github.com/reinieltalplacido/classalign/pkg/redis"
)

// HealthFunc 依赖探活，返回非 nil 表示服务不可用
type HealthFunc func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时关闭 Token 黑名单检查与速率限制；health 为 nil 时 /health 恒为 ok
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, health HealthFunc, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	// 避免把 nil 指针装进接口
	var (
		checker middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	if rdb != nil {
		checker = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := health(ctx); err != nil {
				logger.Warn("健康检查失败", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	assistantLimit := middleware.RateLimit(limiter, cfg.Assistant.RateLimit, cfg.Assistant.RateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// WebSocket 握手通过查询参数认证
		v1.GET("/assistant/ws", middleware.QueryTokenAuth(jwtMgr, checker), assistantLimit, h.Assistant.Chat)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 课程模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.POST("", h.Class.CreateClass)
				classes.DELETE("", h.Class.DeleteAllClasses)
				classes.PUT("/:id", h.Class.UpdateClass)
				classes.DELETE("/:id", h.Class.DeleteClass)
			}

			// 周视图
			authorized.GET("/calendar", h.Calendar.GetCalendar)

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/pdf", h.Export.ExportPDF)
				export.GET("/xlsx", h.Export.ExportExcel)
				export.GET("/ics", h.Export.ExportICS)
			}

			// 导入模块
			authorized.POST("/import/ics", h.Import.ImportICS)

			// 助手模块
			assistant := authorized.Group("/assistant")
			assistant.Use(assistantLimit)
			{
				assistant.POST("/action", h.Assistant.Action)
				assistant.POST("/suggest", h.Assistant.Suggest)
			}
		}
	}

	return r
}
