// Package cli mealctl 运维命令：迁移、建用户、查看餐次、导出报表
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/repository"
	"eating-management/backend/pkg/database"
	applogger "eating-management/backend/pkg/logger"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand 创建 mealctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "mealctl",
		Short:         "用餐管理运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "输出调试日志")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewSlotsCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// env 单次命令执行所需的依赖
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	cal    *mealslot.Calendar
}

func (o *RootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "console"
	logger, err := applogger.NewLogger(&cfg.Log, "mealctl")
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

// open 加载配置并连接数据库；migrate 为 true 时先执行迁移
func (o *RootOptions) open(migrate bool) (*env, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db, cfg.Database.Driver, logger); err != nil {
			return nil, err
		}
	}
	cal, err := calendarFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db, cal: cal}, nil
}

func (e *env) repo() *repository.Repository {
	return repository.NewRepository(e.db)
}

func (e *env) close() {
	if sqlDB, _ := e.db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	e.logger.Sync()
}
