package dto

// ── 组织节点模块 DTO ──

// CreateNodeRequest 创建组织节点请求
type CreateNodeRequest struct {
	ParentID *string `json:"parent_id"`
	Level    string  `json:"level"     binding:"required,oneof=global concept store placement"`
	Name     string  `json:"name"      binding:"required,min=1,max=100"`
}

// UpdateNodeRequest 修改节点名称
type UpdateNodeRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// NodeResponse 组织节点
type NodeResponse struct {
	ID        string  `json:"id"`
	ParentID  *string `json:"parent_id,omitempty"`
	Level     string  `json:"level"`
	Name      string  `json:"name"`
	Version   int     `json:"version"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}
