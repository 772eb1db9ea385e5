package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/service"
	"eating-management/backend/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	aggSvc    service.AggregatorService
	exportSvc service.ExportService
	logger    *zap.Logger
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(aggSvc service.AggregatorService, exportSvc service.ExportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{aggSvc: aggSvc, exportSvc: exportSvc, logger: logger}
}

// Monthly 月度统计
// GET /api/v1/reports/monthly?year=&month=[&user_id=]
// 普通成员只能查看本人
func (h *ReportHandler) Monthly(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.PeriodReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if !p.IsStaff() {
		req.UserID = p.UserID
	}

	report, err := h.aggSvc.SummarizePeriod(c.Request.Context(), req.Year, req.Month, req.UserID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, report)
}

// Export 导出月度结算表
// GET /api/v1/reports/monthly/export?year=&month=[&user_id=]
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.PeriodReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	table, err := h.aggSvc.ExportReport(c.Request.Context(), req.Year, req.Month, req.UserID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	buf, filename, err := h.exportSvc.RenderReport(table)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Attachment(c, filename, service.XLSXContentType, buf.Bytes())
}
