package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eating-management/backend/config"
	"eating-management/backend/internal/api/handler"
	"eating-management/backend/internal/api/middleware"
	"eating-management/backend/internal/model"
	"eating-management/backend/pkg/jwt"
	"eating-management/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil（Redis 不可用时限流降级）
func Setup(cfg *config.Config, h *handler.Handler, db *gorm.DB, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staff := middleware.RoleAuth(model.RoleKitchen, model.RoleAdmin)
	admin := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 用餐模块
			meals := authorized.Group("/meals")
			{
				meals.GET("/slots", h.Meal.ListSlots)
				meals.GET("/slots.ics", h.Meal.SlotsICS)
				meals.POST("/cancellations", h.Meal.Cancel)
				meals.DELETE("/cancellations/:id", h.Meal.Uncancel)
				meals.POST("/guest-registrations", h.Meal.AddGuests) // 代他人登记由 Service 层鉴权
				meals.DELETE("/registrations/:id", h.Meal.RemoveRegistration)
				meals.GET("/registrations/me", h.Meal.ListMine)
				meals.GET("/summary", staff, h.Meal.Summary)
			}

			// 报表模块
			reports := authorized.Group("/reports")
			{
				reports.GET("/monthly", h.Report.Monthly) // 普通成员只能看本人（Handler 层限制）
				reports.GET("/monthly/export", admin, h.Report.Export)
			}

			authorized.GET("/activity-logs", admin, h.Activity.List)
			authorized.GET("/users", admin, h.User.List)
		}
	}

	return r
}
