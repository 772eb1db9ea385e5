package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 容器镜像缺少 zoneinfo 时仍可加载组织时区

	"go.uber.org/zap"

	"eating-management/backend/config"
	"eating-management/backend/internal/api/handler"
	"eating-management/backend/internal/api/router"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/repository"
	"eating-management/backend/internal/scheduler"
	"eating-management/backend/internal/service"
	"eating-management/backend/pkg/database"
	"eating-management/backend/pkg/jwt"
	applogger "eating-management/backend/pkg/logger"
	"eating-management/backend/pkg/redis"
	"eating-management/backend/pkg/tracing"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("MEAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, cfg.Tracing.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Meal.Timezone),
	)

	// 3. 链路追踪（未配置 OTLP 地址时为空实现）
	shutdownTracing, err := tracing.Setup(context.Background(), &cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 4. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	if err := database.Migrate(db, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，限流关闭，提醒去重改用数据库", zap.Error(err))
		rdb = nil
	}

	// 6. 用餐日历
	cal, err := mealslot.NewCalendarFromConfig(&cfg.Meal)
	if err != nil {
		logger.Fatal("用餐日历配置无效", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cal, jwtMgr, logger)
	h := handler.NewHandler(svc, logger)

	// 8. 用餐提醒调度
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(&cfg.Scheduler, cal, repo, newDedupStore(rdb, repo), newNotifier(cfg, logger), logger)
		if err := sched.Start(); err != nil {
			logger.Fatal("启动提醒调度失败", zap.Error(err))
		}
	}

	// 9. 初始化路由
	engine := router.Setup(cfg, h, db, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if sched != nil {
		sched.Stop(ctx)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("链路追踪关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// newDedupStore Redis 可用时用 SET NX，否则落库
func newDedupStore(rdb *redis.Client, repo *repository.Repository) scheduler.DedupStore {
	if rdb != nil {
		return scheduler.NewRedisDedup(rdb)
	}
	return scheduler.NewDBDedup(repo.NotificationDelivery)
}

// newNotifier 配置了 SMTP 时发邮件，否则只写日志
func newNotifier(cfg *config.Config, logger *zap.Logger) scheduler.Notifier {
	if !cfg.Mail.Enabled() {
		logger.Info("未配置 SMTP，用餐提醒仅写日志")
		return scheduler.NewLogNotifier(logger)
	}
	n, err := scheduler.NewMailNotifier(&cfg.Mail)
	if err != nil {
		logger.Warn("SMTP 初始化失败，用餐提醒仅写日志", zap.Error(err))
		return scheduler.NewLogNotifier(logger)
	}
	return n
}
