package handler

import (
	"go.uber.org/zap"

	"eating-management/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Meal     *MealHandler
	Report   *ReportHandler
	Activity *ActivityLogHandler
	User     *UserHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth, logger),
		Meal:     NewMealHandler(svc.Slot, svc.Ledger, svc.Aggregator, logger),
		Report:   NewReportHandler(svc.Aggregator, svc.Export, logger),
		Activity: NewActivityLogHandler(svc.Audit, logger),
		User:     NewUserHandler(svc.User, logger),
	}
}
