package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"daypart-hub/internal/model"
	"daypart-hub/internal/repository"
	pkgerrors "daypart-hub/pkg/errors"
)

// ── 内存数据源 ──
//
// 三个 mock 仓储共享同一份数据，ChangeSet 按真实实现的规则校验版本与唯一性后落盘。

type memStore struct {
	nodes     map[string]*model.OrgNode
	defs      map[string]*model.DaypartDefinition
	schedules map[string]*model.DaypartSchedule

	applyErr error // 非空时 ChangeSet.Apply 直接返回该错误
	applied  int
	// beforeApply 在下一次 Apply 校验前执行一次，用于模拟并发提交
	beforeApply func()
}

func newMemStore() *memStore {
	return &memStore{
		nodes:     make(map[string]*model.OrgNode),
		defs:      make(map[string]*model.DaypartDefinition),
		schedules: make(map[string]*model.DaypartSchedule),
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		OrgNode:    &mockOrgNodeRepo{m},
		Definition: &mockDefinitionRepo{m},
		Schedule:   &mockScheduleRepo{m},
		ChangeSet:  &mockChangeSetRepo{m},
	}
}

// schedulesOf 某定义下的排期，按 kind/start/id 排序
func (m *memStore) schedulesOf(defID string) []model.DaypartSchedule {
	var out []model.DaypartSchedule
	for _, s := range m.schedules {
		if s.DefinitionID == defID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduleKind != out[j].ScheduleKind {
			return out[i].ScheduleKind < out[j].ScheduleKind
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ScheduleID < out[j].ScheduleID
	})
	return out
}

// defsOwnedBy 某节点拥有的定义
func (m *memStore) defsOwnedBy(nodeID string) []*model.DaypartDefinition {
	var out []*model.DaypartDefinition
	for _, d := range m.defs {
		if d.OwnerNodeID == nodeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ── Mock OrgNodeRepository ──

type mockOrgNodeRepo struct{ m *memStore }

func (r *mockOrgNodeRepo) Create(_ context.Context, node *model.OrgNode) error {
	if node.NodeID == "" {
		node.NodeID = "node-" + node.Name
	}
	node.Version = 1
	node.CreatedAt = time.Now()
	node.UpdatedAt = node.CreatedAt
	r.m.nodes[node.NodeID] = node
	return nil
}

func (r *mockOrgNodeRepo) GetByID(_ context.Context, id string) (*model.OrgNode, error) {
	if n, ok := r.m.nodes[id]; ok {
		c := *n
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockOrgNodeRepo) ListChildren(_ context.Context, parentID string) ([]model.OrgNode, error) {
	var out []model.OrgNode
	for _, n := range r.m.nodes {
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *mockOrgNodeRepo) ListAncestors(_ context.Context, id string) ([]model.OrgNode, error) {
	var out []model.OrgNode
	for cur := id; cur != ""; {
		n, ok := r.m.nodes[cur]
		if !ok {
			break
		}
		out = append(out, *n)
		cur = ""
		if n.ParentID != nil {
			cur = *n.ParentID
		}
	}
	return out, nil
}

func (r *mockOrgNodeRepo) Update(_ context.Context, node *model.OrgNode) error {
	cur, ok := r.m.nodes[node.NodeID]
	if !ok || cur.Version != node.Version {
		return pkgerrors.ErrOptimisticLock
	}
	node.Version++
	c := *node
	r.m.nodes[node.NodeID] = &c
	return nil
}

func (r *mockOrgNodeRepo) Delete(_ context.Context, id string, _ string) error {
	delete(r.m.nodes, id)
	return nil
}

// ── Mock DefinitionRepository ──

type mockDefinitionRepo struct{ m *memStore }

func (r *mockDefinitionRepo) Create(_ context.Context, def *model.DaypartDefinition) error {
	for _, d := range r.m.defs {
		if d.OwnerNodeID == def.OwnerNodeID && d.Name == def.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if def.DefinitionID == "" {
		def.DefinitionID = "def-" + def.OwnerNodeID + "-" + def.Name
	}
	def.Version = 1
	c := *def
	c.Schedules = nil
	r.m.defs[def.DefinitionID] = &c
	return nil
}

func (r *mockDefinitionRepo) GetByID(_ context.Context, id string) (*model.DaypartDefinition, error) {
	if d, ok := r.m.defs[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockDefinitionRepo) ListByOwners(_ context.Context, ownerIDs []string) ([]model.DaypartDefinition, error) {
	var out []model.DaypartDefinition
	for _, owner := range ownerIDs {
		for _, d := range r.m.defsOwnedBy(owner) {
			c := *d
			c.Schedules = r.m.schedulesOf(d.DefinitionID)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *mockDefinitionRepo) Update(_ context.Context, def *model.DaypartDefinition) error {
	cur, ok := r.m.defs[def.DefinitionID]
	if !ok || cur.Version != def.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.DisplayLabel, cur.Color, cur.Icon, cur.SortOrder = def.DisplayLabel, def.Color, def.Icon, def.SortOrder
	cur.Version++
	def.Version = cur.Version
	return nil
}

func (r *mockDefinitionRepo) Delete(_ context.Context, id string, _ string) error {
	if _, ok := r.m.defs[id]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	delete(r.m.defs, id)
	return nil
}

func (r *mockDefinitionRepo) BumpVersion(_ context.Context, id string, version int, _ string) error {
	cur, ok := r.m.defs[id]
	if !ok || cur.Version != version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.Version++
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct{ m *memStore }

func (r *mockScheduleRepo) BatchCreate(_ context.Context, schedules []model.DaypartSchedule) error {
	for i := range schedules {
		s := schedules[i]
		if s.ScheduleID == "" {
			s.ScheduleID = "sched-" + s.DefinitionID + "-" + s.StartTime
		}
		s.Version = 1
		r.m.schedules[s.ScheduleID] = &s
	}
	return nil
}

func (r *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.DaypartSchedule, error) {
	if s, ok := r.m.schedules[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockScheduleRepo) ListByDefinition(_ context.Context, definitionID string) ([]model.DaypartSchedule, error) {
	return r.m.schedulesOf(definitionID), nil
}

func (r *mockScheduleRepo) Update(_ context.Context, s *model.DaypartSchedule) error {
	cur, ok := r.m.schedules[s.ScheduleID]
	if !ok || cur.Version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	c := *s
	c.Version++
	r.m.schedules[s.ScheduleID] = &c
	s.Version = c.Version
	return nil
}

func (r *mockScheduleRepo) DeleteByIDs(_ context.Context, ids []string, _ string) error {
	for _, id := range ids {
		if _, ok := r.m.schedules[id]; !ok {
			return pkgerrors.ErrOptimisticLock
		}
	}
	for _, id := range ids {
		delete(r.m.schedules, id)
	}
	return nil
}

// ── Mock ChangeSetRepository ──

type mockChangeSetRepo struct{ m *memStore }

// Apply 先整体校验再落盘，失败时不留下任何变更
func (r *mockChangeSetRepo) Apply(ctx context.Context, cs *repository.ChangeSet) error {
	if r.m.applyErr != nil {
		return r.m.applyErr
	}
	if cs.IsEmpty() {
		return nil
	}
	if hook := r.m.beforeApply; hook != nil {
		r.m.beforeApply = nil
		hook()
	}

	guarded := cs.GuardDefinitionID != "" &&
		(cs.UpdateDefinition == nil || cs.UpdateDefinition.DefinitionID != cs.GuardDefinitionID)
	if guarded {
		if cur, ok := r.m.defs[cs.GuardDefinitionID]; !ok || cur.Version != cs.GuardVersion {
			return pkgerrors.ErrOptimisticLock
		}
	}

	for _, id := range cs.Deletes {
		if _, ok := r.m.schedules[id]; !ok {
			return pkgerrors.ErrOptimisticLock
		}
	}
	if cs.DeleteDefinitionID != "" {
		if _, ok := r.m.defs[cs.DeleteDefinitionID]; !ok {
			return pkgerrors.ErrOptimisticLock
		}
	}
	if d := cs.CreateDefinition; d != nil {
		for _, cur := range r.m.defs {
			if cur.OwnerNodeID == d.OwnerNodeID && cur.Name == d.Name && cur.DefinitionID != cs.DeleteDefinitionID {
				return pkgerrors.ErrDuplicateFork
			}
		}
	}
	if d := cs.UpdateDefinition; d != nil {
		if cur, ok := r.m.defs[d.DefinitionID]; !ok || cur.Version != d.Version {
			return pkgerrors.ErrOptimisticLock
		}
	}
	for _, s := range cs.Updates {
		if cur, ok := r.m.schedules[s.ScheduleID]; !ok || cur.Version != s.Version {
			return pkgerrors.ErrOptimisticLock
		}
	}

	repo := r.m.repository()
	if guarded {
		_ = repo.Definition.BumpVersion(ctx, cs.GuardDefinitionID, cs.GuardVersion, cs.OperatorID)
	}
	_ = repo.Schedule.DeleteByIDs(ctx, cs.Deletes, cs.OperatorID)
	if cs.DeleteDefinitionID != "" {
		_ = repo.Definition.Delete(ctx, cs.DeleteDefinitionID, cs.OperatorID)
	}
	if cs.CreateDefinition != nil {
		_ = repo.Definition.Create(ctx, cs.CreateDefinition)
	}
	if cs.UpdateDefinition != nil {
		_ = repo.Definition.Update(ctx, cs.UpdateDefinition)
	}
	for i := range cs.Updates {
		_ = repo.Schedule.Update(ctx, &cs.Updates[i])
	}
	_ = repo.Schedule.BatchCreate(ctx, cs.Inserts)
	r.m.applied++
	return nil
}

// ── Mock ConfigCache ──

type mockConfigCache struct {
	gen     int64
	entries map[string][]byte
	bumps   int
}

func newMockConfigCache() *mockConfigCache {
	return &mockConfigCache{entries: make(map[string][]byte)}
}

func (c *mockConfigCache) key(gen int64, nodeID string) string {
	return fmt.Sprintf("%d:%s", gen, nodeID)
}

func (c *mockConfigCache) ConfigGeneration(_ context.Context) (int64, error) {
	return c.gen, nil
}

func (c *mockConfigCache) BumpConfigGeneration(_ context.Context) error {
	c.gen++
	c.bumps++
	return nil
}

func (c *mockConfigCache) GetEffectiveConfig(_ context.Context, gen int64, nodeID string) ([]byte, bool, error) {
	data, ok := c.entries[c.key(gen, nodeID)]
	return data, ok, nil
}

func (c *mockConfigCache) SetEffectiveConfig(_ context.Context, gen int64, nodeID string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.entries[c.key(gen, nodeID)] = data
	return nil
}
