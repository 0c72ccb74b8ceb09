package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgNode 组织节点表，对应 org_nodes
// 层级 global → concept → store → placement，global 无父节点
type OrgNode struct {
	NodeID   string  `gorm:"type:uuid;primaryKey"        json:"node_id"`
	ParentID *string `gorm:"type:uuid;index"             json:"parent_id,omitempty"`
	Level    string  `gorm:"type:varchar(16);not null"   json:"level"`
	Name     string  `gorm:"type:varchar(100);not null"  json:"name"`
	VersionedModel
}

// TableName 指定表名
func (OrgNode) TableName() string { return "org_nodes" }

// BeforeCreate 未指定主键时生成 UUID
func (n *OrgNode) BeforeCreate(_ *gorm.DB) error {
	if n.NodeID == "" {
		n.NodeID = uuid.NewString()
	}
	return nil
}
