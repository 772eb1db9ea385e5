package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eating-management/backend/internal/model"
)

// NotificationDeliveryRepository 用餐提醒投递记录（Redis 不可用时的去重存储）
type NotificationDeliveryRepository interface {
	// Claim 插入 (slot_id, user_id)，已存在时返回 false
	Claim(ctx context.Context, slotID, userID string, at time.Time) (bool, error)
	// PurgeBefore 删除 notified_at 早于 before 的记录，返回删除条数
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

type notificationDeliveryRepo struct {
	db *gorm.DB
}

// NewNotificationDeliveryRepo 创建 NotificationDeliveryRepository 实例
func NewNotificationDeliveryRepo(db *gorm.DB) NotificationDeliveryRepository {
	return &notificationDeliveryRepo{db: db}
}

func (r *notificationDeliveryRepo) Claim(ctx context.Context, slotID, userID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.NotificationDelivery{SlotID: slotID, UserID: userID, NotifiedAt: at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *notificationDeliveryRepo) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("notified_at < ?", before).
		Delete(&model.NotificationDelivery{})
	return result.RowsAffected, result.Error
}
