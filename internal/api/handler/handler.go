package handler

import "daypart-hub/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Node    *NodeHandler
	Daypart *DaypartHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Node:    NewNodeHandler(svc.OrgNode),
		Daypart: NewDaypartHandler(svc.Daypart),
		Export:  NewExportHandler(svc.Export),
	}
}
