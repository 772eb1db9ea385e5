package model

import (
	"time"

	"gorm.io/gorm"
)

// 记录类型
const (
	RecordKindCancellation  = "cancellation"
	RecordKindGuestAddition = "guest_addition"
)

// AttendanceRecord 用餐偏离记录表 — 对应 attendance_records
// 默认所有成员每餐用餐，记录只表示偏离：取消用餐或加餐（非成员份数）。
// 记录创建后不再修改，只允许删除。
// (user_id, meal_date, meal_type) 上的取消记录由部分唯一索引 uq_attendance_cancellation 约束。
type AttendanceRecord struct {
	RecordID     string    `gorm:"type:varchar(36);primaryKey"         json:"record_id"`
	UserID       string    `gorm:"type:varchar(36);not null;index"     json:"user_id"`
	MealDate     string    `gorm:"type:char(10);not null;index"        json:"meal_date"` // 组织本地日历日 YYYY-MM-DD
	MealType     string    `gorm:"type:varchar(10);not null"           json:"meal_type"` // lunch | dinner
	Kind         string    `gorm:"type:varchar(20);not null"           json:"kind"`      // cancellation | guest_addition
	GuestName    string    `gorm:"type:varchar(100)"                   json:"guest_name,omitempty"`
	GuestCount   int       `gorm:"not null;default:0"                  json:"guest_count"`
	GuestReason  string    `gorm:"type:varchar(255)"                   json:"guest_reason,omitempty"`
	RegisteredBy string    `gorm:"type:varchar(36);not null"           json:"registered_by"`
	CreatedAt    time.Time `gorm:"not null"                            json:"created_at"`

	// 关联
	User      *User `gorm:"foreignKey:UserID;references:ID"       json:"user,omitempty"`
	Registrar *User `gorm:"foreignKey:RegisteredBy;references:ID" json:"registrar,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// BeforeCreate 生成主键
func (r *AttendanceRecord) BeforeCreate(_ *gorm.DB) error {
	if r.RecordID == "" {
		r.RecordID = newID()
	}
	return nil
}

// IsCancellation 是否为取消用餐记录
func (r *AttendanceRecord) IsCancellation() bool {
	return r.Kind == RecordKindCancellation
}
