package scheduler

import (
	"context"
	"time"

	"eating-management/backend/internal/repository"
)

// DedupStore 提醒去重存储：同一 (餐次, 用户) 只能占位一次
// 先占位后投递，投递失败不重试，保证至多一次
type DedupStore interface {
	Claim(ctx context.Context, slotID, userID string, ttl time.Duration) (bool, error)
}

// purger 可清理过期占位的存储
type purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// ────────── Redis ──────────

// onceClaimer pkg/redis.Client 的占位能力
type onceClaimer interface {
	ClaimOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDedup 基于 SET NX + TTL 的去重，过期由 Redis 自动清理
type RedisDedup struct {
	client onceClaimer
}

// NewRedisDedup 创建 Redis 去重存储
func NewRedisDedup(client onceClaimer) *RedisDedup {
	return &RedisDedup{client: client}
}

func dedupKey(slotID, userID string) string {
	return "meal:notify:" + slotID + ":" + userID
}

func (d *RedisDedup) Claim(ctx context.Context, slotID, userID string, ttl time.Duration) (bool, error) {
	return d.client.ClaimOnce(ctx, dedupKey(slotID, userID), ttl)
}

// ────────── Database ──────────

// DBDedup 基于 notification_deliveries 表的去重（Redis 不可用时使用）
type DBDedup struct {
	repo repository.NotificationDeliveryRepository
	now  func() time.Time
}

// NewDBDedup 创建数据库去重存储
func NewDBDedup(repo repository.NotificationDeliveryRepository) *DBDedup {
	return &DBDedup{repo: repo, now: time.Now}
}

// Claim ttl 由 Purge 统一处理
func (d *DBDedup) Claim(ctx context.Context, slotID, userID string, _ time.Duration) (bool, error) {
	return d.repo.Claim(ctx, slotID, userID, d.now().UTC())
}

func (d *DBDedup) Purge(ctx context.Context, before time.Time) (int64, error) {
	return d.repo.PurgeBefore(ctx, before)
}
