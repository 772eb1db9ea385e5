package model

import "gorm.io/gorm"

// 角色
const (
	RoleMember  = "member"
	RoleKitchen = "kitchen"
	RoleAdmin   = "admin"
)

// User 用户表 — 对应 users
// 身份生命周期（注册、验证）由外部系统负责，本服务只读取成员与认证主体
type User struct {
	ID           string `gorm:"column:user_id;type:varchar(36);primaryKey"  json:"user_id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"       json:"username"`
	FullName     string `gorm:"type:varchar(100);not null"                  json:"full_name"`
	Email        string `gorm:"type:varchar(255);not null"                  json:"email"`
	Phone        string `gorm:"type:varchar(20);not null"                   json:"phone"`
	PasswordHash string `gorm:"type:varchar(255);not null"                  json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'member'"  json:"role"` // member | kitchen | admin
	IsActive     bool   `gorm:"not null"                                    json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}
