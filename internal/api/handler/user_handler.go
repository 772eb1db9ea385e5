package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/service"
	"eating-management/backend/pkg/response"
)

// UserHandler 用户名单 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
	logger  *zap.Logger
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userSvc: userSvc, logger: logger}
}

// List 用户列表（分页，含停用账号）
// GET /api/v1/users?page=&page_size=&role=
func (h *UserHandler) List(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		internalError(c, h.logger, "查询用户列表失败", err)
		return
	}
	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}
