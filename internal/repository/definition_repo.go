package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"daypart-hub/internal/model"
	pkgerrors "daypart-hub/pkg/errors"
)

// DefinitionRepository 时段定义数据访问接口
type DefinitionRepository interface {
	Create(ctx context.Context, def *model.DaypartDefinition) error
	GetByID(ctx context.Context, id string) (*model.DaypartDefinition, error)
	// ListByOwners 列出这些节点拥有的定义，并预加载各自的排期
	ListByOwners(ctx context.Context, ownerIDs []string) ([]model.DaypartDefinition, error)
	Update(ctx context.Context, def *model.DaypartDefinition) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// BumpVersion 版本为 version 时递增，否则返回 ErrOptimisticLock
	BumpVersion(ctx context.Context, id string, version int, updatedBy string) error
}

type definitionRepo struct {
	db *gorm.DB
}

// NewDefinitionRepo 创建 DefinitionRepository 实例
func NewDefinitionRepo(db *gorm.DB) DefinitionRepository {
	return &definitionRepo{db: db}
}

func (r *definitionRepo) Create(ctx context.Context, def *model.DaypartDefinition) error {
	return r.db.WithContext(ctx).Omit("Schedules").Create(def).Error
}

func (r *definitionRepo) GetByID(ctx context.Context, id string) (*model.DaypartDefinition, error) {
	var def model.DaypartDefinition
	err := r.db.WithContext(ctx).
		Where("definition_id = ?", id).
		First(&def).Error
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *definitionRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]model.DaypartDefinition, error) {
	var defs []model.DaypartDefinition
	if len(ownerIDs) == 0 {
		return defs, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("schedule_kind ASC, start_time ASC, schedule_id ASC")
		}).
		Where("owner_node_id IN ?", ownerIDs).
		Order("sort_order ASC, name ASC").
		Find(&defs).Error
	return defs, err
}

// Update 更新展示属性，带乐观锁
func (r *definitionRepo) Update(ctx context.Context, def *model.DaypartDefinition) error {
	oldVersion := def.Version
	result := r.db.WithContext(ctx).
		Model(&model.DaypartDefinition{}).
		Where("definition_id = ? AND version = ?", def.DefinitionID, oldVersion).
		Updates(map[string]interface{}{
			"display_label": def.DisplayLabel,
			"color":         def.Color,
			"icon":          def.Icon,
			"sort_order":    def.SortOrder,
			"updated_by":    def.UpdatedBy,
			"updated_at":    time.Now().UTC(),
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	def.Version = oldVersion + 1
	return nil
}

func (r *definitionRepo) BumpVersion(ctx context.Context, id string, version int, updatedBy string) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
		"version":    version + 1,
	}
	if updatedBy != "" {
		updates["updated_by"] = updatedBy
	}
	result := r.db.WithContext(ctx).
		Model(&model.DaypartDefinition{}).
		Where("definition_id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// Delete 软删除；记录已不存在时视为快照过期
func (r *definitionRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.DaypartDefinition{}).
		Where("definition_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
