package errors

import "errors"

var (
	// ErrDuplicateKey 唯一约束冲突：并发写入已抢先创建同一键的记录
	ErrDuplicateKey = errors.New("记录已存在")
	// ErrStoreUnavailable 存储层超时或不可用
	ErrStoreUnavailable = errors.New("存储服务暂不可用")
)
