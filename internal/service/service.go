package service

import (
	"time"

	"go.uber.org/zap"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/repository"
	"eating-management/backend/pkg/jwt"
)

// Clock 当前时刻来源，测试中注入固定时刻
type Clock func() time.Time

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Slot       SlotService
	Ledger     LedgerService
	Aggregator AggregatorService
	Export     ExportService
	Audit      AuditService
	User       UserService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cal *mealslot.Calendar,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) *Service {
	audit := NewAuditService(repo, logger)
	return &Service{
		Auth:       NewAuthService(repo, jwtMgr, logger),
		Slot:       NewSlotService(cal, cfg.Meal.MaxSlotDays, time.Now),
		Ledger:     NewLedgerService(repo, cal, audit, cfg.Meal.RegistrationLeadTime, time.Now, logger),
		Aggregator: NewAggregatorService(repo, cal, &cfg.Report, logger),
		Export:     NewExportService(logger),
		Audit:      audit,
		User:       NewUserService(repo, logger),
	}
}
