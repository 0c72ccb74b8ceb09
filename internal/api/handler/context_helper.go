package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"daypart-hub/internal/api/middleware"
	"daypart-hub/pkg/response"
)

// MustGetOperatorID 写接口要求声明操作人（X-Operator-ID），缺失时写入 400。
// 调用方应在 ok=false 时直接 return。
func MustGetOperatorID(c *gin.Context) (string, bool) {
	op := middleware.GetOperatorID(c)
	if op == "" {
		response.BadRequest(c, 10002, "缺少操作人标识 "+middleware.OperatorHeader)
		return "", false
	}
	return op, true
}

// bindJSON 解析请求体；超出 BodyLimit 时交给中间件回 413
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if middleware.IsBodyTooLarge(err) {
			_ = c.Error(err)
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return false
	}
	return true
}
