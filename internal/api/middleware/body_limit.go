package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eating-management/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明了 Content-Length 的超限请求直接 413；未声明长度的由 MaxBytesReader 在读取时截断，
// 绑定失败后由 handler 按参数错误处理
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
