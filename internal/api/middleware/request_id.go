package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// gin.Context 中的键
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
	RoleKey      = "role"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDMaxLen = 64
)

// RequestID 请求追踪 ID：沿用上游 X-Request-ID，缺失或不合法时生成 UUID。
// 写入 gin.Context、响应头以及当前 otel span（需挂在 otelgin 之后）。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}

		c.Set(RequestIDKey, rid)
		c.Header(requestIDHeader, rid)
		trace.SpanFromContext(c.Request.Context()).
			SetAttributes(attribute.String("http.request_id", rid))

		c.Next()
	}
}

// validRequestID 只接受 [A-Za-z0-9._-]，长度不超过 requestIDMaxLen
func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		ch := rid[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
