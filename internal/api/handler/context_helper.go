package handler

import (
	"github.com/gin-gonic/gin"

	"eating-management/backend/internal/api/middleware"
	"eating-management/backend/internal/dto"
	"eating-management/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.UserIDKey)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.RoleKey)
}

// MustGetPrincipal 提取当前认证主体
func MustGetPrincipal(c *gin.Context) (dto.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return dto.Principal{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return dto.Principal{}, false
	}
	return dto.Principal{UserID: userID, Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
