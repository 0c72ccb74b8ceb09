package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"daypart-hub/internal/api/middleware"
	"daypart-hub/internal/dto"
	"daypart-hub/internal/service"
	"daypart-hub/pkg/response"
)

// DaypartHandler 时段配置 HTTP 处理器
type DaypartHandler struct {
	svc service.DaypartService
}

// NewDaypartHandler 创建 DaypartHandler
func NewDaypartHandler(svc service.DaypartService) *DaypartHandler {
	return &DaypartHandler{svc: svc}
}

// ── 查询 ──

// GetConfig 节点的有效配置
// GET /api/v1/nodes/:id/config
func (h *DaypartHandler) GetConfig(c *gin.Context) {
	resp, err := h.svc.EffectiveConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// ResolveDay 某一天的时段裁决结果
// GET /api/v1/nodes/:id/day?date=2025-07-04
func (h *DaypartHandler) ResolveDay(c *gin.Context) {
	var q dto.DayQuery
	if !bindQuery(c, &q) {
		return
	}

	resp, err := h.svc.ResolveDay(c.Request.Context(), c.Param("id"), q.Date)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// ValidateDays 候选星期冲突预检
// POST /api/v1/nodes/:id/definitions/:defId/collisions
func (h *DaypartHandler) ValidateDays(c *gin.Context) {
	var req dto.ValidateDaysRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.ValidateCandidateDays(c.Request.Context(), c.Param("id"), c.Param("defId"), &req)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// ── 排期编辑 ──

// PlanEdit 预演一次编辑，不落库
// POST /api/v1/nodes/:id/definitions/:defId/schedules/plan
func (h *DaypartHandler) PlanEdit(c *gin.Context) {
	var req dto.ScheduleEditRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.PlanEdit(c.Request.Context(), c.Param("id"), c.Param("defId"), &req)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// ApplyEdit 提交编辑，必要时先分叉继承的定义
// POST /api/v1/nodes/:id/definitions/:defId/schedules/apply
func (h *DaypartHandler) ApplyEdit(c *gin.Context) {
	var req dto.ScheduleEditRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ApplyEdit(c.Request.Context(), c.Param("id"), c.Param("defId"), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// Merge 合并星期集合
// POST /api/v1/nodes/:id/definitions/:defId/schedules/merge
func (h *DaypartHandler) Merge(c *gin.Context) {
	var req dto.MergeRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Merge(c.Request.Context(), c.Param("id"), c.Param("defId"), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// ── 定义 ──

// CreateDefinition 在节点上新建时段定义
// POST /api/v1/nodes/:id/definitions
func (h *DaypartHandler) CreateDefinition(c *gin.Context) {
	var req dto.CreateDefinitionRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.CreateDefinition(c.Request.Context(), c.Param("id"), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.Created(c, resp)
}

// UpdateDefinition 修改展示属性
// PUT /api/v1/nodes/:id/definitions/:defId
func (h *DaypartHandler) UpdateDefinition(c *gin.Context) {
	var req dto.UpdateDefinitionRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.UpdateDefinition(c.Request.Context(), c.Param("id"), c.Param("defId"), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteDefinition 删除本节点拥有的定义；删除分叉即恢复继承
// DELETE /api/v1/nodes/:id/definitions/:defId
func (h *DaypartHandler) DeleteDefinition(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.DeleteDefinition(c.Request.Context(), c.Param("id"), c.Param("defId"), operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// Fork 显式分叉继承的定义
// POST /api/v1/nodes/:id/definitions/:defId/fork
func (h *DaypartHandler) Fork(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Fork(c.Request.Context(), c.Param("id"), c.Param("defId"), operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.Created(c, resp)
}

// ImportHolidays 从 ICS 导入节假日排期
// POST /api/v1/nodes/:id/definitions/:defId/import?start_time=10:00&end_time=22:00
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - 原始内容: text/calendar 请求体
func (h *DaypartHandler) ImportHolidays(c *gin.Context) {
	var q dto.ImportHolidaysQuery
	if !bindQuery(c, &q) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var body io.Reader = c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	resp, err := h.svc.ImportHolidays(c.Request.Context(), c.Param("id"), c.Param("defId"), body, &q, operatorID)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			_ = c.Error(err)
			return
		}
		handleDaypartError(c, err)
		return
	}
	response.Created(c, resp)
}

// ── 无状态计算 ──

// Occurrences 展开重复规则
// POST /api/v1/recurrence/occurrences
func (h *DaypartHandler) Occurrences(c *gin.Context) {
	var req dto.OccurrencesRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.svc.NextOccurrences(&req)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// OrphanedDays 编辑后失去覆盖的星期
// POST /api/v1/advisor/orphaned-days
func (h *DaypartHandler) OrphanedDays(c *gin.Context) {
	var req dto.OrphanedDaysRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.OrphanedDays(&req)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, resp)
}

// MergeCandidates 可与已保存排期合并的兄弟排期
// POST /api/v1/advisor/merge-candidates
func (h *DaypartHandler) MergeCandidates(c *gin.Context) {
	var req dto.MergeCandidatesRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.svc.MergeCandidates(&req)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}
