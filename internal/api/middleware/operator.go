package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorHeader 调用方声明的操作人标识，只用于审计字段，不做认证
const OperatorHeader = "X-Operator-ID"

const (
	operatorIDKey    = "operator_id"
	operatorIDMaxLen = 64
)

// Operator 读取 X-Operator-ID 注入上下文；超长或含控制字符的值被丢弃
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if op != "" && len(op) <= operatorIDMaxLen && !strings.ContainsFunc(op, isControl) {
			c.Set(operatorIDKey, op)
		}
		c.Next()
	}
}

// GetOperatorID 上下文中的操作人，未声明时为空串
func GetOperatorID(c *gin.Context) string {
	return c.GetString(operatorIDKey)
}

func isControl(r rune) bool { return r < 0x20 || r == 0x7f }
