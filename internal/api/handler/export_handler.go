package handler

import (
	"github.com/gin-gonic/gin"

	"daypart-hub/internal/dto"
	"daypart-hub/internal/service"
	"daypart-hub/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportConfig 导出节点有效配置
// GET /api/v1/nodes/:id/export/xlsx
func (h *ExportHandler) ExportConfig(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportEvents 导出活动/节假日日历
// GET /api/v1/nodes/:id/export/ics?from=2025-01-01&count=10
func (h *ExportHandler) ExportEvents(c *gin.Context) {
	var q dto.ExportEventsQuery
	if !bindQuery(c, &q) {
		return
	}

	buf, filename, err := h.exportSvc.ExportEvents(c.Request.Context(), c.Param("id"), &q)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.Attachment(c, filename, contentTypeICS, buf.Bytes())
}
