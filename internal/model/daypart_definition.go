package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DaypartDefinition 时段定义表，对应 daypart_definitions
// (owner_node_id, name) 在未删除记录中唯一
type DaypartDefinition struct {
	DefinitionID string  `gorm:"type:uuid;primaryKey"                                                        json:"definition_id"`
	OwnerNodeID  string  `gorm:"type:uuid;not null;uniqueIndex:idx_daypart_definitions_owner_name,where:deleted_at IS NULL" json:"owner_node_id"`
	Name         string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_daypart_definitions_owner_name,where:deleted_at IS NULL" json:"name"`
	DisplayLabel string  `gorm:"type:varchar(100);not null;default:''"                                       json:"display_label"`
	Color        string  `gorm:"type:varchar(16);not null;default:''"                                        json:"color"`
	Icon         string  `gorm:"type:varchar(64);not null;default:''"                                        json:"icon"`
	SortOrder    int     `gorm:"not null;default:0"                                                          json:"sort_order"`
	IsCustomized bool    `gorm:"not null;default:false"                                                      json:"is_customized"`
	ForkedFromID *string `gorm:"type:uuid"                                                                   json:"forked_from_id,omitempty"`
	VersionedModel

	// 关联
	Schedules []DaypartSchedule `gorm:"foreignKey:DefinitionID;references:DefinitionID" json:"schedules,omitempty"`
}

// TableName 指定表名
func (DaypartDefinition) TableName() string { return "daypart_definitions" }

// BeforeCreate 未指定主键时生成 UUID
func (d *DaypartDefinition) BeforeCreate(_ *gorm.DB) error {
	if d.DefinitionID == "" {
		d.DefinitionID = uuid.NewString()
	}
	return nil
}
