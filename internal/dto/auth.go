package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=member kitchen admin"`
}

// Principal 已认证主体（由 JWT 中间件注入）
type Principal struct {
	UserID string
	Role   string
}

// IsStaff 厨房或管理员
func (p Principal) IsStaff() bool {
	return p.Role == "kitchen" || p.Role == "admin"
}
