package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"daypart-hub/internal/model"
	pkgerrors "daypart-hub/pkg/errors"
)

// ChangeSet 一次写计划的行级变更，必须整体提交
type ChangeSet struct {
	OperatorID         string
	CreateDefinition   *model.DaypartDefinition
	UpdateDefinition   *model.DaypartDefinition
	DeleteDefinitionID string
	Inserts            []model.DaypartSchedule
	Updates            []model.DaypartSchedule
	Deletes            []string

	// GuardDefinitionID 本次变更所在的已有定义。提交时按 GuardVersion 递增其版本，
	// 同一定义上基于同一快照的并发写入只有一个能成功。
	GuardDefinitionID string
	GuardVersion      int
}

// IsEmpty 是否没有任何变更
func (cs *ChangeSet) IsEmpty() bool {
	return cs.CreateDefinition == nil && cs.UpdateDefinition == nil && cs.DeleteDefinitionID == "" &&
		len(cs.Inserts) == 0 && len(cs.Updates) == 0 && len(cs.Deletes) == 0
}

// ChangeSetRepository 原子提交写计划
type ChangeSetRepository interface {
	// Apply 在单个事务内提交；同一节点同名定义冲突返回 ErrDuplicateFork，
	// 版本过期返回 ErrOptimisticLock
	Apply(ctx context.Context, cs *ChangeSet) error
}

type changeSetRepo struct {
	db *gorm.DB
}

// NewChangeSetRepo 创建 ChangeSetRepository 实例
func NewChangeSetRepo(db *gorm.DB) ChangeSetRepository {
	return &changeSetRepo{db: db}
}

func (r *changeSetRepo) Apply(ctx context.Context, cs *ChangeSet) error {
	if cs.IsEmpty() {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		// UpdateDefinition 命中同一行时已自带版本校验
		if cs.GuardDefinitionID != "" &&
			(cs.UpdateDefinition == nil || cs.UpdateDefinition.DefinitionID != cs.GuardDefinitionID) {
			if err := repo.Definition.BumpVersion(ctx, cs.GuardDefinitionID, cs.GuardVersion, cs.OperatorID); err != nil {
				return err
			}
		}

		// 先删后建：删除分叉与同名新建可在同一计划中出现
		if err := repo.Schedule.DeleteByIDs(ctx, cs.Deletes, cs.OperatorID); err != nil {
			return err
		}
		if cs.DeleteDefinitionID != "" {
			if err := repo.Definition.Delete(ctx, cs.DeleteDefinitionID, cs.OperatorID); err != nil {
				return err
			}
		}
		if cs.CreateDefinition != nil {
			if err := repo.Definition.Create(ctx, cs.CreateDefinition); err != nil {
				return err
			}
		}
		if cs.UpdateDefinition != nil {
			if err := repo.Definition.Update(ctx, cs.UpdateDefinition); err != nil {
				return err
			}
		}
		for i := range cs.Updates {
			if err := repo.Schedule.Update(ctx, &cs.Updates[i]); err != nil {
				return err
			}
		}
		return repo.Schedule.BatchCreate(ctx, cs.Inserts)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateFork
	}
	return err
}
