package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"eating-management/backend/internal/api/middleware"
	"eating-management/backend/internal/service"
	pkgerrors "eating-management/backend/pkg/errors"
	"eating-management/backend/pkg/response"
)

// handleServiceError 业务错误 → HTTP 响应
// 未识别的错误只记录日志，不向调用方暴露细节
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, service.ErrAlreadyCancelled):
		response.BadRequest(c, 20001, "该餐次已取消")
	case errors.Is(err, service.ErrCutoffPassed):
		response.BadRequest(c, 20002, "已过取消截止时间")
	case errors.Is(err, service.ErrTooLateToCancel):
		response.BadRequest(c, 20003, "距开餐时间过近，无法删除加餐登记")
	case errors.Is(err, service.ErrRecordKindMismatch):
		response.BadRequest(c, 20004, "记录类型不匹配")
	case errors.Is(err, service.ErrRecordNotFound):
		response.NotFound(c, 20101, "记录不存在")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限操作该记录")
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		internalError(c, logger, "存储不可用", err)
	default:
		internalError(c, logger, "请求处理失败", err)
	}
}

// internalError 记录日志并标记 span 失败，响应体不含错误细节
func internalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg,
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("user_id", c.GetString(middleware.UserIDKey)),
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	span := trace.SpanFromContext(c.Request.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	response.InternalError(c)
}
