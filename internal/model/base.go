package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// newID 生成主键（应用层生成，兼容 PostgreSQL 与 SQLite）
func newID() string {
	return uuid.NewString()
}
