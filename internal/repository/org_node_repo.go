package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"daypart-hub/internal/model"
	pkgerrors "daypart-hub/pkg/errors"
)

// maxHierarchyDepth 祖先链查询的深度上限，防御数据中的环
const maxHierarchyDepth = 8

// OrgNodeRepository 组织节点数据访问接口
type OrgNodeRepository interface {
	Create(ctx context.Context, node *model.OrgNode) error
	GetByID(ctx context.Context, id string) (*model.OrgNode, error)
	ListChildren(ctx context.Context, parentID string) ([]model.OrgNode, error)
	// ListAncestors 从节点自身开始向上直到全局节点；节点不存在时返回空切片
	ListAncestors(ctx context.Context, id string) ([]model.OrgNode, error)
	Update(ctx context.Context, node *model.OrgNode) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type orgNodeRepo struct {
	db *gorm.DB
}

// NewOrgNodeRepo 创建 OrgNodeRepository 实例
func NewOrgNodeRepo(db *gorm.DB) OrgNodeRepository {
	return &orgNodeRepo{db: db}
}

func (r *orgNodeRepo) Create(ctx context.Context, node *model.OrgNode) error {
	return r.db.WithContext(ctx).Create(node).Error
}

func (r *orgNodeRepo) GetByID(ctx context.Context, id string) (*model.OrgNode, error) {
	var node model.OrgNode
	err := r.db.WithContext(ctx).
		Where("node_id = ?", id).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *orgNodeRepo) ListChildren(ctx context.Context, parentID string) ([]model.OrgNode, error) {
	var nodes []model.OrgNode
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *orgNodeRepo) ListAncestors(ctx context.Context, id string) ([]model.OrgNode, error) {
	var nodes []model.OrgNode
	err := r.db.WithContext(ctx).Raw(`
		WITH RECURSIVE chain AS (
			SELECT org_nodes.*, 0 AS depth FROM org_nodes
			WHERE node_id = ? AND deleted_at IS NULL
			UNION ALL
			SELECT n.*, c.depth + 1 FROM org_nodes n
			JOIN chain c ON n.node_id = c.parent_id
			WHERE n.deleted_at IS NULL AND c.depth < ?
		)
		SELECT * FROM chain ORDER BY depth ASC`, id, maxHierarchyDepth).
		Scan(&nodes).Error
	return nodes, err
}

// Update 仅更新名称，带乐观锁
func (r *orgNodeRepo) Update(ctx context.Context, node *model.OrgNode) error {
	oldVersion := node.Version
	result := r.db.WithContext(ctx).
		Model(&model.OrgNode{}).
		Where("node_id = ? AND version = ?", node.NodeID, oldVersion).
		Updates(map[string]interface{}{
			"name":       node.Name,
			"updated_by": node.UpdatedBy,
			"updated_at": time.Now().UTC(),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	node.Version = oldVersion + 1
	return nil
}

func (r *orgNodeRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.OrgNode{}).
		Where("node_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now().UTC(),
		}).Error
}
