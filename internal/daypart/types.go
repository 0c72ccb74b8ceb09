package daypart

import (
	"fmt"
	"strings"

	"daypart-hub/internal/recurrence"
)

// Level 组织层级，数值越大越靠近门店
type Level int

const (
	LevelGlobal Level = iota
	LevelConcept
	LevelStore
	LevelPlacement
)

var levelNames = map[Level]string{
	LevelGlobal:    "global",
	LevelConcept:   "concept",
	LevelStore:     "store",
	LevelPlacement: "placement",
}

func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel 解析层级名称
func ParseLevel(s string) (Level, error) {
	for l, n := range levelNames {
		if n == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: 未知层级 %q", ErrInvalidHierarchy, s)
}

// Node 组织节点；Global 节点 ParentID 为空
type Node struct {
	ID       string
	ParentID string
	Level    Level
	Name     string
}

// Definition 时段定义。Name 是跨层级的逻辑键，同名即同一时段。
type Definition struct {
	ID           string
	Name         string
	DisplayLabel string
	Color        string
	Icon         string
	SortOrder    int
	OwnerNodeID  string
	IsCustomized bool
}

// NormalizeName 逻辑键统一为小写、去首尾空白
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Kind 排期类型
type Kind string

const (
	KindRegular      Kind = "regular"
	KindEventHoliday Kind = "event_holiday"
)

// Schedule 时段排期。
// DaypartName 为所属定义的逻辑键，由加载方填充，碰撞检测按它过滤。
type Schedule struct {
	ID           string
	DefinitionID string
	DaypartName  string
	Days         DaySet
	Start        Clock
	End          Clock
	Kind         Kind
	Name         string
	Rule         *recurrence.Rule
	Priority     int
}

// Validate 校验排期自身字段（不涉及与其它排期的关系）
func (s Schedule) Validate() error {
	if s.Start == s.End {
		return fmt.Errorf("%w: start_time 与 end_time 相同", ErrInvalidSchedule)
	}
	if s.Start < 0 || s.Start >= minutesPerDay || s.End < 0 || s.End > minutesPerDay {
		return fmt.Errorf("%w: 时间越界", ErrInvalidSchedule)
	}

	switch s.Kind {
	case KindRegular:
		if s.Days.IsEmpty() {
			return fmt.Errorf("%w: 常规排期的星期集合不能为空", ErrInvalidSchedule)
		}
		if s.Rule != nil {
			return fmt.Errorf("%w: 常规排期不能携带重复规则", ErrInvalidSchedule)
		}
	case KindEventHoliday:
		if s.Rule == nil {
			if s.Days.IsEmpty() {
				return fmt.Errorf("%w: 活动/节假日排期缺少重复规则", ErrInvalidSchedule)
			}
			return nil
		}
		if err := s.Rule.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: 未知排期类型 %q", ErrInvalidSchedule, s.Kind)
	}
	return nil
}

// clone 复制排期字段（规则深拷贝），身份由调用方重新分配
func (s Schedule) clone() Schedule {
	c := s
	if s.Rule != nil {
		r := *s.Rule
		c.Rule = &r
	}
	return c
}
