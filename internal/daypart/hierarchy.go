package daypart

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ── 层级解析与写时分叉 ──────────────────────────────────────
//
// Resolver 持有调用方一次性取回的快照（节点链、定义、排期），只做计算：
//   - 有效配置：沿祖先链自下而上，同名定义取最近的一层
//   - 写时分叉：对继承来的定义写入时，先在当前节点复制一份（is_customized），
//     连同全部排期以新身份克隆，再把编辑落到克隆上；祖先记录永不修改
//   - 产出 CommitPlan，由调用方在一个事务里持久化
// ─────────────────────────────────────────────────────────────

// Resolver 层级解析器
type Resolver struct {
	nodes          map[string]Node
	defs           map[string]Definition
	defsByOwner    map[string]map[string]Definition // owner → name → definition
	schedulesByDef map[string][]Schedule
	newID          func() string
}

// Option Resolver 可选项
type Option func(*Resolver)

// WithIDGenerator 替换新记录的身份生成器（默认 UUID）
func WithIDGenerator(fn func() string) Option {
	return func(r *Resolver) { r.newID = fn }
}

// NewResolver 校验快照并建立索引。
// 节点须构成严格的祖先链：父节点存在、层级严格递增、无环；
// 同一节点下同名定义至多一条。
func NewResolver(nodes []Node, defs []Definition, schedules []Schedule, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		nodes:          make(map[string]Node, len(nodes)),
		defs:           make(map[string]Definition, len(defs)),
		defsByOwner:    make(map[string]map[string]Definition),
		schedulesByDef: make(map[string][]Schedule),
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, n := range nodes {
		r.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if err := r.checkNode(n); err != nil {
			return nil, err
		}
	}

	for _, d := range defs {
		if _, ok := r.nodes[d.OwnerNodeID]; !ok {
			return nil, fmt.Errorf("%w: 定义 %s 的归属节点 %s", ErrNodeNotFound, d.ID, d.OwnerNodeID)
		}
		d.Name = NormalizeName(d.Name)
		byName := r.defsByOwner[d.OwnerNodeID]
		if byName == nil {
			byName = make(map[string]Definition)
			r.defsByOwner[d.OwnerNodeID] = byName
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: 节点 %s 下重复的时段 %q", ErrDefinitionExists, d.OwnerNodeID, d.Name)
		}
		byName[d.Name] = d
		r.defs[d.ID] = d
	}

	for _, s := range schedules {
		d, ok := r.defs[s.DefinitionID]
		if !ok {
			return nil, fmt.Errorf("%w: 排期 %s 引用的定义 %s", ErrDefinitionNotFound, s.ID, s.DefinitionID)
		}
		s.DaypartName = d.Name
		r.schedulesByDef[d.ID] = append(r.schedulesByDef[d.ID], s)
	}

	return r, nil
}

func (r *Resolver) checkNode(n Node) error {
	if n.ParentID == "" {
		if n.Level != LevelGlobal {
			return fmt.Errorf("%w: 非全局节点 %s 缺少父节点", ErrInvalidHierarchy, n.ID)
		}
		return nil
	}
	parent, ok := r.nodes[n.ParentID]
	if !ok {
		return fmt.Errorf("%w: 节点 %s 的父节点 %s", ErrNodeNotFound, n.ID, n.ParentID)
	}
	if n.Level <= parent.Level {
		return fmt.Errorf("%w: 节点 %s(%s) 不能挂在 %s(%s) 之下", ErrInvalidHierarchy, n.ID, n.Level, parent.ID, parent.Level)
	}
	return nil
}

// Ancestors 从节点自身开始向上直到全局节点
func (r *Resolver) Ancestors(nodeID string) ([]Node, error) {
	var chain []Node
	seen := make(map[string]bool)
	for id := nodeID; id != ""; {
		n, ok := r.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: 节点 %s 处存在环", ErrInvalidHierarchy, id)
		}
		seen[id] = true
		chain = append(chain, n)
		id = n.ParentID
	}
	return chain, nil
}

// EffectiveDefinitions 节点可见的时段定义：每个逻辑名取最近一层
func (r *Resolver) EffectiveDefinitions(nodeID string) ([]Definition, error) {
	chain, err := r.Ancestors(nodeID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var result []Definition
	for _, n := range chain {
		for name, d := range r.defsByOwner[n.ID] {
			if seen[name] {
				continue
			}
			seen[name] = true
			result = append(result, d)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// EffectiveSchedules 节点上某时段当前生效的排期。
// definitionID 可以是该逻辑时段在任意可见层级上的定义，结果总是按最近一层解析。
func (r *Resolver) EffectiveSchedules(nodeID, definitionID string) ([]Schedule, error) {
	d, err := r.visible(nodeID, definitionID)
	if err != nil {
		return nil, err
	}
	eff, _, err := r.effective(nodeID, d.Name)
	if err != nil {
		return nil, err
	}
	return r.schedulesOf(eff.ID), nil
}

// EffectiveConfig 节点的完整有效配置
type EffectiveConfig struct {
	NodeID                string
	Definitions           []Definition
	SchedulesByDefinition map[string][]Schedule
}

// EffectiveConfig 汇总节点可见的定义与各自的排期
func (r *Resolver) EffectiveConfig(nodeID string) (EffectiveConfig, error) {
	defs, err := r.EffectiveDefinitions(nodeID)
	if err != nil {
		return EffectiveConfig{}, err
	}
	cfg := EffectiveConfig{
		NodeID:                nodeID,
		Definitions:           defs,
		SchedulesByDefinition: make(map[string][]Schedule, len(defs)),
	}
	for _, d := range defs {
		cfg.SchedulesByDefinition[d.ID] = r.schedulesOf(d.ID)
	}
	return cfg, nil
}

// ── 写计划 ──

// EditOp 排期编辑类型
type EditOp string

const (
	EditInsert EditOp = "insert"
	EditUpdate EditOp = "update"
	EditDelete EditOp = "delete"
)

// ScheduleEdit 对某定义下排期的一次编辑。
// ScheduleID 指向调用方看到的排期（继承场景下为祖先定义下的排期 ID）。
type ScheduleEdit struct {
	Op         EditOp
	ScheduleID string
	Schedule   Schedule
}

// DefinitionPatch 定义展示属性的部分更新，nil 字段保持不变
type DefinitionPatch struct {
	DisplayLabel *string
	Color        *string
	Icon         *string
	SortOrder    *int
}

// CommitPlan 一次写操作的行级效果，调用方须原子提交
type CommitPlan struct {
	NodeID string
	// Forked 为 true 时 CreateDefinition 是新分叉，Inserts 是分叉后的完整排期集合
	Forked             bool
	Definition         Definition
	CreateDefinition   *Definition
	UpdateDefinition   *Definition
	DeleteDefinitionID string
	Inserts            []Schedule
	Updates            []Schedule
	Deletes            []string
	// Result 提交后 Definition 下的完整排期集合
	Result []Schedule
	// Target 为被插入/更新后的排期，Previous 为被更新/删除前的排期
	Target   *Schedule
	Previous *Schedule
}

// Fork 写时分叉的唯一入口：在 nodeID 复制继承来的定义及其全部排期。
// 定义已属于本节点时返回空计划。
func (r *Resolver) Fork(nodeID, definitionID string) (*CommitPlan, error) {
	return r.mutate(nodeID, definitionID, func(*workingSet) error { return nil })
}

// PlanEdit 规划一次排期编辑；继承来的定义先分叉再编辑
func (r *Resolver) PlanEdit(nodeID, definitionID string, edit ScheduleEdit) (*CommitPlan, error) {
	var target, previous *Schedule
	plan, err := r.mutate(nodeID, definitionID, func(ws *workingSet) error {
		switch edit.Op {
		case EditInsert:
			s, err := ws.insert(edit.Schedule)
			if err != nil {
				return err
			}
			target = &s
		case EditUpdate:
			prev, next, err := ws.update(edit.ScheduleID, edit.Schedule)
			if err != nil {
				return err
			}
			target, previous = &next, &prev
		case EditDelete:
			prev, err := ws.remove(edit.ScheduleID)
			if err != nil {
				return err
			}
			previous = &prev
		default:
			return fmt.Errorf("%w: 未知编辑类型 %q", ErrInvalidSchedule, edit.Op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan.Target, plan.Previous = target, previous
	return plan, nil
}

// PlanDefinitionEdit 修改展示属性；继承来的定义同样先分叉
func (r *Resolver) PlanDefinitionEdit(nodeID, definitionID string, patch DefinitionPatch) (*CommitPlan, error) {
	plan, err := r.mutate(nodeID, definitionID, func(ws *workingSet) error {
		if patch.DisplayLabel != nil {
			ws.def.DisplayLabel = *patch.DisplayLabel
		}
		if patch.Color != nil {
			ws.def.Color = *patch.Color
		}
		if patch.Icon != nil {
			ws.def.Icon = *patch.Icon
		}
		if patch.SortOrder != nil {
			ws.def.SortOrder = *patch.SortOrder
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if plan.Forked {
		plan.CreateDefinition = &plan.Definition
	} else {
		plan.UpdateDefinition = &plan.Definition
	}
	return plan, nil
}

// PlanMerge 把 candidateIDs 合并进 savedID（见 MergeSchedules），必要时先分叉
func (r *Resolver) PlanMerge(nodeID, definitionID, savedID string, candidateIDs []string) (*CommitPlan, error) {
	var target *Schedule
	plan, err := r.mutate(nodeID, definitionID, func(ws *workingSet) error {
		i, err := ws.index(savedID)
		if err != nil {
			return err
		}
		saved := ws.schedules[i]

		candidates := make([]Schedule, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			j, err := ws.index(id)
			if err != nil {
				return err
			}
			candidates = append(candidates, ws.schedules[j])
		}

		merged, err := MergeSchedules(saved, candidates)
		if err != nil {
			return err
		}
		ws.replace(i, merged.Merged)
		for _, id := range candidateIDs {
			if _, err := ws.remove(id); err != nil {
				return err
			}
		}
		target = &merged.Merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan.Target = target
	return plan, nil
}

// PlanCreateDefinition 在节点新建时段定义。
// 逻辑名在该节点已可见（本地或继承）时拒绝，继承场景应走分叉。
func (r *Resolver) PlanCreateDefinition(nodeID string, def Definition) (*CommitPlan, error) {
	if _, err := r.Ancestors(nodeID); err != nil {
		return nil, err
	}
	def.Name = NormalizeName(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("%w: 时段名称不能为空", ErrInvalidSchedule)
	}
	if existing, ok, err := r.effective(nodeID, def.Name); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %q 已由节点 %s 定义", ErrDefinitionExists, def.Name, existing.OwnerNodeID)
	}

	def.ID = r.newID()
	def.OwnerNodeID = nodeID
	def.IsCustomized = false
	return &CommitPlan{
		NodeID:           nodeID,
		Definition:       def,
		CreateDefinition: &def,
	}, nil
}

// PlanDelete 删除本节点自己的定义及其排期；继承来的定义拒绝删除。
// 删除分叉后，祖先的同名定义重新生效，计划中的 Definition/Result 即为它。
func (r *Resolver) PlanDelete(nodeID, definitionID string) (*CommitPlan, error) {
	d, ok := r.defs[definitionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, definitionID)
	}
	if d.OwnerNodeID != nodeID {
		if _, err := r.visible(nodeID, definitionID); err != nil {
			return nil, err
		}
		return nil, ErrCannotDeleteInherited
	}

	plan := &CommitPlan{NodeID: nodeID, DeleteDefinitionID: d.ID}
	for _, s := range r.schedulesByDef[d.ID] {
		plan.Deletes = append(plan.Deletes, s.ID)
	}
	sort.Strings(plan.Deletes)

	if parent := r.nodes[nodeID].ParentID; parent != "" {
		inherited, ok, err := r.effective(parent, d.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			plan.Definition = inherited
			plan.Result = r.schedulesOf(inherited.ID)
		}
	}
	return plan, nil
}

// ── 内部实现 ──

// visible 定义存在且归属节点在 nodeID 的祖先链上
func (r *Resolver) visible(nodeID, definitionID string) (Definition, error) {
	d, ok := r.defs[definitionID]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, definitionID)
	}
	chain, err := r.Ancestors(nodeID)
	if err != nil {
		return Definition{}, err
	}
	for _, n := range chain {
		if n.ID == d.OwnerNodeID {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: 定义 %s 归属 %s", ErrDefinitionNotVisible, d.ID, d.OwnerNodeID)
}

// effective 节点上逻辑名 name 的生效定义
func (r *Resolver) effective(nodeID, name string) (Definition, bool, error) {
	chain, err := r.Ancestors(nodeID)
	if err != nil {
		return Definition{}, false, err
	}
	for _, n := range chain {
		if d, ok := r.defsByOwner[n.ID][name]; ok {
			return d, true, nil
		}
	}
	return Definition{}, false, nil
}

// lookup 写操作使用：定义必须正是该节点上生效的那一条
func (r *Resolver) lookup(nodeID, definitionID string) (Definition, error) {
	d, err := r.visible(nodeID, definitionID)
	if err != nil {
		return Definition{}, err
	}
	eff, _, err := r.effective(nodeID, d.Name)
	if err != nil {
		return Definition{}, err
	}
	if eff.ID != d.ID {
		return Definition{}, fmt.Errorf("%w: %q 在节点 %s 生效的是 %s", ErrDefinitionShadowed, d.Name, nodeID, eff.ID)
	}
	return d, nil
}

func (r *Resolver) schedulesOf(definitionID string) []Schedule {
	src := r.schedulesByDef[definitionID]
	out := make([]Schedule, len(src))
	for i, s := range src {
		out[i] = s.clone()
	}
	sortSchedules(out)
	return out
}

// mutate 准备工作集（必要时分叉），执行 fn，再把差异整理成 CommitPlan
func (r *Resolver) mutate(nodeID, definitionID string, fn func(*workingSet) error) (*CommitPlan, error) {
	d, err := r.lookup(nodeID, definitionID)
	if err != nil {
		return nil, err
	}

	ws := &workingSet{
		def:      d,
		idMap:    make(map[string]string),
		inserted: make(map[string]bool),
		updated:  make(map[string]bool),
		newID:    r.newID,
	}
	forked := d.OwnerNodeID != nodeID
	if forked {
		ws.def = r.forkDefinition(nodeID, d)
	}
	for _, s := range r.schedulesOf(d.ID) {
		c := s
		if forked {
			c.ID = r.newID()
			c.DefinitionID = ws.def.ID
		}
		ws.idMap[s.ID] = c.ID
		ws.schedules = append(ws.schedules, c)
	}

	if err := fn(ws); err != nil {
		return nil, err
	}

	sortSchedules(ws.schedules)
	plan := &CommitPlan{
		NodeID:     nodeID,
		Forked:     forked,
		Definition: ws.def,
		Result:     ws.schedules,
	}
	if forked {
		def := ws.def
		plan.CreateDefinition = &def
		plan.Inserts = append([]Schedule(nil), ws.schedules...)
		return plan, nil
	}
	for _, s := range ws.schedules {
		switch {
		case ws.inserted[s.ID]:
			plan.Inserts = append(plan.Inserts, s)
		case ws.updated[s.ID]:
			plan.Updates = append(plan.Updates, s)
		}
	}
	for _, id := range ws.deleted {
		if !ws.inserted[id] {
			plan.Deletes = append(plan.Deletes, id)
		}
	}
	return plan, nil
}

func (r *Resolver) forkDefinition(nodeID string, src Definition) Definition {
	fork := src
	fork.ID = r.newID()
	fork.OwnerNodeID = nodeID
	fork.IsCustomized = true
	return fork
}

func sortSchedules(s []Schedule) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Kind != s[j].Kind {
			return s[i].Kind < s[j].Kind
		}
		if s[i].Start != s[j].Start {
			return s[i].Start < s[j].Start
		}
		return s[i].ID < s[j].ID
	})
}
