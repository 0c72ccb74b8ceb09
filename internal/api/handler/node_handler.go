package handler

import (
	"github.com/gin-gonic/gin"

	"daypart-hub/internal/dto"
	"daypart-hub/internal/service"
	"daypart-hub/pkg/response"
)

// NodeHandler 组织节点 HTTP 处理器
type NodeHandler struct {
	nodeSvc service.OrgNodeService
}

// NewNodeHandler 创建 NodeHandler
func NewNodeHandler(nodeSvc service.OrgNodeService) *NodeHandler {
	return &NodeHandler{nodeSvc: nodeSvc}
}

// CreateNode 创建组织节点
// POST /api/v1/nodes
func (h *NodeHandler) CreateNode(c *gin.Context) {
	var req dto.CreateNodeRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	node, err := h.nodeSvc.Create(c.Request.Context(), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.Created(c, node)
}

// GetNode 获取节点
// GET /api/v1/nodes/:id
func (h *NodeHandler) GetNode(c *gin.Context) {
	node, err := h.nodeSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, node)
}

// RenameNode 修改节点名称
// PUT /api/v1/nodes/:id
func (h *NodeHandler) RenameNode(c *gin.Context) {
	var req dto.UpdateNodeRequest
	if !bindJSON(c, &req) {
		return
	}
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	node, err := h.nodeSvc.Rename(c.Request.Context(), c.Param("id"), &req, operatorID)
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, node)
}

// ListChildren 直接下级
// GET /api/v1/nodes/:id/children
func (h *NodeHandler) ListChildren(c *gin.Context) {
	children, err := h.nodeSvc.ListChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, gin.H{"list": children})
}

// ListAncestors 祖先链，自身在前
// GET /api/v1/nodes/:id/ancestors
func (h *NodeHandler) ListAncestors(c *gin.Context) {
	chain, err := h.nodeSvc.Ancestors(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleDaypartError(c, err)
		return
	}
	response.OK(c, gin.H{"list": chain})
}
