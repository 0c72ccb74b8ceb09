package daypart

import (
	"errors"
	"fmt"
	"strings"

	"daypart-hub/internal/recurrence"
)

// ── 时段模块业务错误 ──

var (
	// ErrInvalidRule 与 recurrence 包共用同一个哨兵，调用方只需比较一次
	ErrInvalidRule = recurrence.ErrInvalidRule

	ErrInvalidSchedule       = errors.New("时段排期无效")
	ErrDayCollision          = errors.New("星期已被同一时段的常规排期占用")
	ErrCannotDeleteInherited = errors.New("不能删除继承自上级的时段定义")
	ErrAmbiguousPriorityTie  = errors.New("同一日期存在优先级相同的多个排期")
	ErrNoCandidates          = errors.New("该日期没有生效的排期")

	ErrNodeNotFound         = errors.New("组织节点不存在")
	ErrInvalidHierarchy     = errors.New("组织层级无效")
	ErrDefinitionNotFound   = errors.New("时段定义不存在")
	ErrDefinitionNotVisible = errors.New("时段定义不在该节点的继承链上")
	ErrDefinitionShadowed   = errors.New("时段定义已被更近层级的同名定义覆盖")
	ErrDefinitionExists     = errors.New("该节点已存在同名时段定义")
	ErrScheduleNotFound     = errors.New("排期不存在")
	ErrNotMergeable         = errors.New("排期不满足合并条件")
)

// DayCollisionError 携带冲突的星期与占用它们的排期
type DayCollisionError struct {
	Days      DaySet
	Conflicts []Schedule
}

func (e *DayCollisionError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, s := range e.Conflicts {
		ids[i] = s.ID
	}
	return fmt.Sprintf("%s: days=%s schedules=[%s]", ErrDayCollision, e.Days, strings.Join(ids, ","))
}

func (e *DayCollisionError) Is(target error) bool { return target == ErrDayCollision }

// PriorityTieError 最高优先级并列的排期，交由调用方决定
type PriorityTieError struct {
	Priority int
	Tied     []Schedule
}

func (e *PriorityTieError) Error() string {
	ids := make([]string, len(e.Tied))
	for i, s := range e.Tied {
		ids[i] = s.ID
	}
	return fmt.Sprintf("%s: priority=%d schedules=[%s]", ErrAmbiguousPriorityTie, e.Priority, strings.Join(ids, ","))
}

func (e *PriorityTieError) Is(target error) bool { return target == ErrAmbiguousPriorityTie }
