package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"daypart-hub/pkg/response"
)

// BodyLimit 请求体大小限制；maxBytes <= 0 表示不限制。
// 超限由读取方以 *http.MaxBytesError 报告，处理器记录到 c.Errors 后在此统一回 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}

// IsBodyTooLarge 读取请求体的错误是否因超出 BodyLimit
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
