package model

import (
	"time"

	"gorm.io/gorm"
)

// 审计动作
const (
	ActionCancelMeal         = "cancel_meal"
	ActionUncancelMeal       = "uncancel_meal"
	ActionRegisterGuestMeal  = "register_guest_meal"
	ActionCancelRegistration = "cancel_registration"
)

// ActivityLog 操作日志表 — 对应 activity_logs（只追加，纯审计）
type ActivityLog struct {
	LogID     string    `gorm:"type:varchar(36);primaryKey"     json:"log_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Detail    string    `gorm:"type:text"                       json:"detail,omitempty"`
	RecordID  *string   `gorm:"type:varchar(36)"                json:"record_id,omitempty"`
	CreatedAt time.Time `gorm:"not null;index"                  json:"created_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }

// BeforeCreate 生成主键
func (l *ActivityLog) BeforeCreate(_ *gorm.DB) error {
	if l.LogID == "" {
		l.LogID = newID()
	}
	return nil
}
