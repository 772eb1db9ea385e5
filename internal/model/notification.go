package model

import "time"

// NotificationDelivery 用餐提醒投递记录表 — 对应 notification_deliveries
// (slot_id, user_id) 作为去重键，保留期过后由调度器清理
type NotificationDelivery struct {
	SlotID     string    `gorm:"type:varchar(32);primaryKey" json:"slot_id"` // 2024-06-10-lunch
	UserID     string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	NotifiedAt time.Time `gorm:"not null;index"              json:"notified_at"`
}

// TableName 指定表名
func (NotificationDelivery) TableName() string { return "notification_deliveries" }
