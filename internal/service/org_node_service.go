package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"daypart-hub/internal/daypart"
	"daypart-hub/internal/dto"
	"daypart-hub/internal/model"
	"daypart-hub/internal/repository"
)

// ── 组织节点模块业务错误 ──

var (
	ErrParentNotFound = errors.New("上级节点不存在")
)

// OrgNodeService 组织节点业务接口
type OrgNodeService interface {
	Create(ctx context.Context, req *dto.CreateNodeRequest, operatorID string) (*dto.NodeResponse, error)
	GetByID(ctx context.Context, id string) (*dto.NodeResponse, error)
	ListChildren(ctx context.Context, id string) ([]dto.NodeResponse, error)
	Ancestors(ctx context.Context, id string) ([]dto.NodeResponse, error)
	Rename(ctx context.Context, id string, req *dto.UpdateNodeRequest, operatorID string) (*dto.NodeResponse, error)
}

type orgNodeService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOrgNodeService 创建 OrgNodeService 实例
func NewOrgNodeService(repo *repository.Repository, logger *zap.Logger) OrgNodeService {
	return &orgNodeService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *orgNodeService) Create(ctx context.Context, req *dto.CreateNodeRequest, operatorID string) (*dto.NodeResponse, error) {
	level, err := daypart.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	// global 是唯一的根层级；其余层级必须挂在更高层级之下
	if level == daypart.LevelGlobal {
		if req.ParentID != nil {
			return nil, fmt.Errorf("%w: global 节点不能有上级", daypart.ErrInvalidHierarchy)
		}
	} else {
		if req.ParentID == nil || *req.ParentID == "" {
			return nil, fmt.Errorf("%w: %s 节点缺少上级", daypart.ErrInvalidHierarchy, level)
		}
		parent, err := s.repo.OrgNode.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			s.logger.Error("查询上级节点失败", zap.String("parent_id", *req.ParentID), zap.Error(err))
			return nil, err
		}
		parentLevel, err := daypart.ParseLevel(parent.Level)
		if err != nil {
			return nil, err
		}
		if parentLevel >= level {
			return nil, fmt.Errorf("%w: %s 不能挂在 %s 之下", daypart.ErrInvalidHierarchy, level, parentLevel)
		}
	}

	node := &model.OrgNode{
		ParentID: req.ParentID,
		Level:    level.String(),
		Name:     req.Name,
	}
	node.Touch(operatorID, true)

	if err := s.repo.OrgNode.Create(ctx, node); err != nil {
		s.logger.Error("创建组织节点失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("组织节点已创建",
		zap.String("node_id", node.NodeID),
		zap.String("level", node.Level),
	)
	return toNodeResponse(node), nil
}

// ────────────────────── Query ──────────────────────

func (s *orgNodeService) GetByID(ctx context.Context, id string) (*dto.NodeResponse, error) {
	node, err := s.repo.OrgNode.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, daypart.ErrNodeNotFound
		}
		s.logger.Error("查询组织节点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toNodeResponse(node), nil
}

func (s *orgNodeService) ListChildren(ctx context.Context, id string) ([]dto.NodeResponse, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	children, err := s.repo.OrgNode.ListChildren(ctx, id)
	if err != nil {
		s.logger.Error("列出下级节点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toNodeResponses(children), nil
}

// Ancestors 自身在前，global 在后
func (s *orgNodeService) Ancestors(ctx context.Context, id string) ([]dto.NodeResponse, error) {
	chain, err := s.repo.OrgNode.ListAncestors(ctx, id)
	if err != nil {
		s.logger.Error("查询祖先链失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if len(chain) == 0 {
		return nil, daypart.ErrNodeNotFound
	}
	return toNodeResponses(chain), nil
}

// ────────────────────── Rename ──────────────────────

func (s *orgNodeService) Rename(ctx context.Context, id string, req *dto.UpdateNodeRequest, operatorID string) (*dto.NodeResponse, error) {
	node, err := s.repo.OrgNode.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, daypart.ErrNodeNotFound
		}
		return nil, err
	}

	node.Name = req.Name
	node.Touch(operatorID, false)
	if err := s.repo.OrgNode.Update(ctx, node); err != nil {
		s.logger.Warn("更新组织节点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toNodeResponse(node), nil
}

// ── 辅助函数 ──

func toNodeResponse(n *model.OrgNode) *dto.NodeResponse {
	return &dto.NodeResponse{
		ID:        n.NodeID,
		ParentID:  n.ParentID,
		Level:     n.Level,
		Name:      n.Name,
		Version:   n.Version,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
}

func toNodeResponses(nodes []model.OrgNode) []dto.NodeResponse {
	out := make([]dto.NodeResponse, 0, len(nodes))
	for i := range nodes {
		out = append(out, *toNodeResponse(&nodes[i]))
	}
	return out
}
