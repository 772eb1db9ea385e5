package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/service"
	"eating-management/backend/pkg/response"
)

// ActivityLogHandler 操作日志 HTTP 处理器
type ActivityLogHandler struct {
	auditSvc service.AuditService
	logger   *zap.Logger
}

// NewActivityLogHandler 创建 ActivityLogHandler
func NewActivityLogHandler(auditSvc service.AuditService, logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{auditSvc: auditSvc, logger: logger}
}

// List 操作日志列表（分页）
// GET /api/v1/activity-logs?page=&page_size=&user_id=&action=
func (h *ActivityLogHandler) List(c *gin.Context) {
	var req dto.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.auditSvc.List(c.Request.Context(), &req)
	if err != nil {
		internalError(c, h.logger, "查询操作日志失败", err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
