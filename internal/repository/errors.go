package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "eating-management/backend/pkg/errors"
)

// translate 将驱动层唯一约束冲突统一为 pkgerrors.ErrDuplicateKey
// 依赖 gorm.Config.TranslateError 把 postgres 23505 / sqlite UNIQUE 转为 gorm.ErrDuplicatedKey
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

// validID 主键与外键列在 PostgreSQL 中为 UUID 类型，非法格式的 id 按记录不存在处理，不下发查询
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
