package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"daypart-hub/internal/daypart"
	"daypart-hub/internal/service"
	pkgerrors "daypart-hub/pkg/errors"
	"daypart-hub/pkg/response"
)

// ── 业务错误码 ──
//
//	100xx 通用   200xx 组织节点   210xx 时段定义   220xx 排期
//	230xx 并发   240xx 输入       250xx 导出

// handleDaypartError 统一处理时段相关业务错误。
// 冲突类错误在 data 中附带明细，供前端高亮冲突的星期或并列的排期。
func handleDaypartError(c *gin.Context, err error) {
	switch {
	// 组织节点
	case errors.Is(err, daypart.ErrNodeNotFound):
		response.NotFound(c, 20001, "组织节点不存在")
	case errors.Is(err, daypart.ErrInvalidHierarchy):
		response.Unprocessable(c, 20002, "组织层级无效", err.Error())
	case errors.Is(err, service.ErrParentNotFound):
		response.NotFound(c, 20003, "上级节点不存在")

	// 时段定义
	case errors.Is(err, daypart.ErrDefinitionNotFound):
		response.NotFound(c, 21001, "时段定义不存在")
	case errors.Is(err, daypart.ErrDefinitionNotVisible):
		response.NotFound(c, 21002, "时段定义不在该节点的继承链上")
	case errors.Is(err, daypart.ErrDefinitionShadowed):
		response.ErrorWithDetails(c, http.StatusConflict, 21003, "时段定义已被本节点覆盖，请使用本节点的定义", err.Error())
	case errors.Is(err, daypart.ErrDefinitionExists):
		response.Conflict(c, 21004, "该节点已可见同名时段定义")
	case errors.Is(err, daypart.ErrCannotDeleteInherited):
		response.Conflict(c, 21005, "不能删除继承自上级的时段定义")

	// 排期
	case errors.Is(err, daypart.ErrScheduleNotFound):
		response.NotFound(c, 22001, "排期不存在")
	case errors.Is(err, daypart.ErrInvalidRule):
		response.Unprocessable(c, 22003, "重复规则无效", err.Error())
	case errors.Is(err, daypart.ErrInvalidSchedule):
		response.Unprocessable(c, 22002, "排期无效", err.Error())
	case errors.Is(err, daypart.ErrDayCollision):
		response.ErrorWithData(c, http.StatusConflict, 22004, "星期已被同一时段的其它排期占用", service.ConflictDetails(err))
	case errors.Is(err, daypart.ErrNotMergeable):
		response.Unprocessable(c, 22005, "排期不满足合并条件", err.Error())
	case errors.Is(err, daypart.ErrAmbiguousPriorityTie):
		response.ErrorWithData(c, http.StatusConflict, 22006, "同一日期存在优先级相同的排期", service.ConflictDetails(err))

	// 并发
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 23001, pkgerrors.ErrOptimisticLock.Error())
	case errors.Is(err, pkgerrors.ErrDuplicateFork):
		response.Conflict(c, 23002, pkgerrors.ErrDuplicateFork.Error())

	// 输入
	case errors.Is(err, service.ErrInvalidDate):
		response.ErrorWithDetails(c, http.StatusBadRequest, 24001, "日期格式无效，应为 YYYY-MM-DD", err.Error())
	case errors.Is(err, service.ErrICSInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 24002, "ICS 文件解析失败", err.Error())

	// 导出
	case errors.Is(err, service.ErrExportNoDayparts):
		response.NotFound(c, 25001, "该节点没有生效的时段定义")

	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
