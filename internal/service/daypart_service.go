package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"daypart-hub/config"
	"daypart-hub/internal/daypart"
	"daypart-hub/internal/dto"
	"daypart-hub/internal/recurrence"
	"daypart-hub/internal/repository"
	pkgerrors "daypart-hub/pkg/errors"
	"daypart-hub/pkg/metrics"
)

// ── 时段模块业务错误 ──

var (
	ErrInvalidDate = errors.New("日期格式无效")
)

// ConfigCache 有效配置缓存，由 pkg/redis.Client 实现
type ConfigCache interface {
	ConfigGeneration(ctx context.Context) (int64, error)
	BumpConfigGeneration(ctx context.Context) error
	GetEffectiveConfig(ctx context.Context, gen int64, nodeID string) ([]byte, bool, error)
	SetEffectiveConfig(ctx context.Context, gen int64, nodeID string, data []byte, ttl time.Duration) error
}

// DaypartService 时段业务接口
//
// 读操作基于节点祖先链的快照即时解析；写操作先由 daypart.Resolver 生成写计划，
// 再通过 ChangeSet 在单个事务内提交。继承来的定义在首次写入时自动分叉。
type DaypartService interface {
	EffectiveConfig(ctx context.Context, nodeID string) (*dto.EffectiveConfigResponse, error)
	ResolveDay(ctx context.Context, nodeID, date string) (*dto.DayPlanResponse, error)
	ValidateCandidateDays(ctx context.Context, nodeID, definitionID string, req *dto.ValidateDaysRequest) (*dto.CollisionResponse, error)

	// PlanEdit 只生成写计划，不提交
	PlanEdit(ctx context.Context, nodeID, definitionID string, req *dto.ScheduleEditRequest) (*dto.CommitPlanResponse, error)
	ApplyEdit(ctx context.Context, nodeID, definitionID string, req *dto.ScheduleEditRequest, operatorID string) (*dto.ApplyEditResponse, error)
	Merge(ctx context.Context, nodeID, definitionID string, req *dto.MergeRequest, operatorID string) (*dto.CommitPlanResponse, error)
	Fork(ctx context.Context, nodeID, definitionID, operatorID string) (*dto.CommitPlanResponse, error)
	ImportHolidays(ctx context.Context, nodeID, definitionID string, ics io.Reader, query *dto.ImportHolidaysQuery, operatorID string) (*dto.ImportHolidaysResponse, error)

	CreateDefinition(ctx context.Context, nodeID string, req *dto.CreateDefinitionRequest, operatorID string) (*dto.CommitPlanResponse, error)
	UpdateDefinition(ctx context.Context, nodeID, definitionID string, req *dto.UpdateDefinitionRequest, operatorID string) (*dto.CommitPlanResponse, error)
	DeleteDefinition(ctx context.Context, nodeID, definitionID, operatorID string) (*dto.CommitPlanResponse, error)

	NextOccurrences(req *dto.OccurrencesRequest) ([]dto.OccurrenceResponse, error)
	OrphanedDays(req *dto.OrphanedDaysRequest) (*dto.OrphanedDaysResponse, error)
	MergeCandidates(req *dto.MergeCandidatesRequest) ([]dto.ScheduleResponse, error)
}

type daypartService struct {
	repo   *repository.Repository
	cache  ConfigCache
	cfg    *config.ResolverConfig
	logger *zap.Logger
}

// NewDaypartService 创建 DaypartService 实例；cache 为 nil 时不使用缓存
func NewDaypartService(repo *repository.Repository, cache ConfigCache, cfg *config.ResolverConfig, logger *zap.Logger) DaypartService {
	return &daypartService{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// ────────────────────── 有效配置 ──────────────────────

func (s *daypartService) EffectiveConfig(ctx context.Context, nodeID string) (*dto.EffectiveConfigResponse, error) {
	gen, cached := s.cachedConfig(ctx, nodeID)
	if cached != nil {
		return cached, nil
	}

	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	cfg, err := snap.resolver.EffectiveConfig(nodeID)
	if err != nil {
		return nil, err
	}

	resp := toEffectiveConfigResponse(cfg)
	s.storeConfig(ctx, gen, nodeID, resp)
	return resp, nil
}

// cachedConfig 返回当前缓存代号与命中的配置；缓存不可用时代号为 -1
func (s *daypartService) cachedConfig(ctx context.Context, nodeID string) (int64, *dto.EffectiveConfigResponse) {
	if s.cache == nil {
		return -1, nil
	}
	gen, err := s.cache.ConfigGeneration(ctx)
	if err != nil {
		metrics.IncConfigCache("error")
		s.logger.Warn("读取配置缓存代号失败", zap.Error(err))
		return -1, nil
	}
	data, ok, err := s.cache.GetEffectiveConfig(ctx, gen, nodeID)
	if err != nil {
		metrics.IncConfigCache("error")
		s.logger.Warn("读取配置缓存失败", zap.String("node_id", nodeID), zap.Error(err))
		return gen, nil
	}
	if !ok {
		metrics.IncConfigCache("miss")
		return gen, nil
	}

	var resp dto.EffectiveConfigResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		metrics.IncConfigCache("error")
		s.logger.Warn("配置缓存内容无法解析", zap.String("node_id", nodeID), zap.Error(err))
		return gen, nil
	}
	metrics.IncConfigCache("hit")
	return gen, &resp
}

func (s *daypartService) storeConfig(ctx context.Context, gen int64, nodeID string, resp *dto.EffectiveConfigResponse) {
	if s.cache == nil || gen < 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.SetEffectiveConfig(ctx, gen, nodeID, data, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("写入配置缓存失败", zap.String("node_id", nodeID), zap.Error(err))
	}
}

// ────────────────────── 单日裁决 ──────────────────────

func (s *daypartService) ResolveDay(ctx context.Context, nodeID, date string) (*dto.DayPlanResponse, error) {
	day, err := recurrence.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}

	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	cfg, err := snap.resolver.EffectiveConfig(nodeID)
	if err != nil {
		return nil, err
	}

	plan := daypart.ResolveDay(cfg, day)
	for _, e := range plan.Entries {
		if e.Tie != nil {
			metrics.IncPriorityTie()
			s.logger.Warn("排期优先级并列",
				zap.String("node_id", nodeID),
				zap.String("daypart", e.Definition.Name),
				zap.String("date", date),
				zap.Int("priority", e.Tie.Priority),
			)
		}
	}
	return toDayPlanResponse(nodeID, plan), nil
}

// ────────────────────── 星期冲突预检 ──────────────────────

func (s *daypartService) ValidateCandidateDays(ctx context.Context, nodeID, definitionID string, req *dto.ValidateDaysRequest) (*dto.CollisionResponse, error) {
	days, err := daypart.NewDaySet(req.Days...)
	if err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	existing, err := snap.resolver.EffectiveSchedules(nodeID, definitionID)
	if err != nil {
		return nil, err
	}
	name, err := definitionName(snap, nodeID, definitionID)
	if err != nil {
		return nil, err
	}

	result, err := daypart.ValidateCandidateDays(name, days, existing, req.ExcludeScheduleID)
	if err != nil {
		metrics.IncCollision()
		return toCollisionResponse(name, result), err
	}
	return toCollisionResponse(name, result), nil
}

// definitionName definitionID 在节点上对应的逻辑名
func definitionName(snap *snapshot, nodeID, definitionID string) (string, error) {
	chain, err := snap.resolver.Ancestors(nodeID)
	if err != nil {
		return "", err
	}
	// 被覆盖的祖先定义只在其归属层级的有效定义中出现，需逐层查找
	for _, n := range chain {
		defs, err := snap.resolver.EffectiveDefinitions(n.ID)
		if err != nil {
			return "", err
		}
		for _, d := range defs {
			if d.ID == definitionID {
				return d.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", daypart.ErrDefinitionNotFound, definitionID)
}

// ────────────────────── 排期编辑 ──────────────────────

func (s *daypartService) PlanEdit(ctx context.Context, nodeID, definitionID string, req *dto.ScheduleEditRequest) (*dto.CommitPlanResponse, error) {
	_, plan, err := s.planEdit(ctx, nodeID, definitionID, req)
	if err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

func (s *daypartService) ApplyEdit(ctx context.Context, nodeID, definitionID string, req *dto.ScheduleEditRequest, operatorID string) (*dto.ApplyEditResponse, error) {
	snap, plan, err := s.planEdit(ctx, nodeID, definitionID, req)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, definitionID, operatorID); err != nil {
		return nil, err
	}

	orphaned, candidates := followUps(plan)
	return &dto.ApplyEditResponse{
		Plan:            *toCommitPlanResponse(plan),
		OrphanedDays:    orphaned.Days(),
		MergeCandidates: toScheduleResponses(candidates),
	}, nil
}

func (s *daypartService) planEdit(ctx context.Context, nodeID, definitionID string, req *dto.ScheduleEditRequest) (*snapshot, *daypart.CommitPlan, error) {
	edit, err := toScheduleEdit(req)
	if err != nil {
		return nil, nil, err
	}
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.PlanEdit(nodeID, definitionID, edit)
	if err != nil {
		if errors.Is(err, daypart.ErrDayCollision) {
			metrics.IncCollision()
		}
		return nil, nil, err
	}
	return snap, plan, nil
}

func toScheduleEdit(req *dto.ScheduleEditRequest) (daypart.ScheduleEdit, error) {
	edit := daypart.ScheduleEdit{Op: daypart.EditOp(req.Op), ScheduleID: req.ScheduleID}
	if edit.Op != daypart.EditInsert && edit.ScheduleID == "" {
		return edit, fmt.Errorf("%w: %s 操作缺少 schedule_id", daypart.ErrInvalidSchedule, edit.Op)
	}
	if edit.Op == daypart.EditDelete {
		return edit, nil
	}
	sched, err := scheduleFromInput(req.Schedule)
	if err != nil {
		return edit, err
	}
	edit.Schedule = sched
	return edit, nil
}

// followUps 提交后的提示：被移除且不再有常规排期覆盖的星期，以及可与目标合并的排期
func followUps(plan *daypart.CommitPlan) (daypart.DaySet, []daypart.Schedule) {
	var orphaned daypart.DaySet
	var candidates []daypart.Schedule

	target := plan.Target
	if prev := plan.Previous; prev != nil && prev.Kind == daypart.KindRegular {
		var after daypart.DaySet
		if target != nil && target.Kind == daypart.KindRegular {
			after = target.Days
		}
		var others []daypart.Schedule
		for _, s := range plan.Result {
			if s.Kind == daypart.KindRegular && (target == nil || s.ID != target.ID) {
				others = append(others, s)
			}
		}
		orphaned = daypart.FindOrphanedDays(prev.Days, after, others)
	}
	if target != nil && target.Kind == daypart.KindRegular {
		candidates = daypart.FindMergeCandidates(*target, plan.Result)
	}
	return orphaned, candidates
}

// ────────────────────── 合并 / 分叉 ──────────────────────

func (s *daypartService) Merge(ctx context.Context, nodeID, definitionID string, req *dto.MergeRequest, operatorID string) (*dto.CommitPlanResponse, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.PlanMerge(nodeID, definitionID, req.SavedID, req.CandidateIDs)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, definitionID, operatorID); err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

func (s *daypartService) Fork(ctx context.Context, nodeID, definitionID, operatorID string) (*dto.CommitPlanResponse, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.Fork(nodeID, definitionID)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, definitionID, operatorID); err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

// ImportHolidays 把日历中的事件逐条插入为活动/节假日排期。
// 每条插入单独提交；中途失败时已导入的部分保留，错误随已导入列表一并返回。
func (s *daypartService) ImportHolidays(ctx context.Context, nodeID, definitionID string, ics io.Reader, query *dto.ImportHolidaysQuery, operatorID string) (*dto.ImportHolidaysResponse, error) {
	inputs, err := ParseHolidayICS(ics, query.StartTime, query.EndTime)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportHolidaysResponse{DefinitionID: definitionID, Imported: []dto.ScheduleResponse{}}
	for i := range inputs {
		req := &dto.ScheduleEditRequest{Op: string(daypart.EditInsert), Schedule: &inputs[i]}
		snap, plan, err := s.planEdit(ctx, nodeID, resp.DefinitionID, req)
		if err != nil {
			return resp, err
		}
		if err := s.commit(ctx, snap, plan, resp.DefinitionID, operatorID); err != nil {
			return resp, err
		}
		// 首次写入可能分叉，后续插入落在新定义上
		if plan.Forked {
			resp.Forked = true
		}
		resp.DefinitionID = plan.Definition.ID
		resp.Imported = append(resp.Imported, toScheduleResponse(*plan.Target))
	}

	s.logger.Info("节假日日历已导入",
		zap.String("node_id", nodeID),
		zap.String("definition_id", resp.DefinitionID),
		zap.Int("count", len(resp.Imported)),
	)
	return resp, nil
}

// ────────────────────── 定义 ──────────────────────

func (s *daypartService) CreateDefinition(ctx context.Context, nodeID string, req *dto.CreateDefinitionRequest, operatorID string) (*dto.CommitPlanResponse, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.PlanCreateDefinition(nodeID, daypart.Definition{
		Name:         req.Name,
		DisplayLabel: req.DisplayLabel,
		Color:        req.Color,
		Icon:         req.Icon,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, "", operatorID); err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

func (s *daypartService) UpdateDefinition(ctx context.Context, nodeID, definitionID string, req *dto.UpdateDefinitionRequest, operatorID string) (*dto.CommitPlanResponse, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.PlanDefinitionEdit(nodeID, definitionID, daypart.DefinitionPatch{
		DisplayLabel: req.DisplayLabel,
		Color:        req.Color,
		Icon:         req.Icon,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, definitionID, operatorID); err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

func (s *daypartService) DeleteDefinition(ctx context.Context, nodeID, definitionID, operatorID string) (*dto.CommitPlanResponse, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return nil, s.loadFailed(nodeID, err)
	}
	plan, err := snap.resolver.PlanDelete(nodeID, definitionID)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, snap, plan, "", operatorID); err != nil {
		return nil, err
	}
	return toCommitPlanResponse(plan), nil
}

// ────────────────────── 无状态计算 ──────────────────────

func (s *daypartService) NextOccurrences(req *dto.OccurrencesRequest) ([]dto.OccurrenceResponse, error) {
	rule, err := ruleFromInput(&req.Rule)
	if err != nil {
		return nil, err
	}
	asOf, err := recurrence.ParseDate(req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDate, req.AsOf)
	}

	n := req.Count
	if n > s.cfg.MaxOccurrences {
		n = s.cfg.MaxOccurrences
	}
	spans, err := recurrence.Spans(*rule, asOf, n)
	if err != nil {
		return nil, err
	}

	out := make([]dto.OccurrenceResponse, 0, len(spans))
	for _, sp := range spans {
		out = append(out, dto.OccurrenceResponse{
			Start: recurrence.FormatDate(sp.Start),
			End:   recurrence.FormatDate(sp.End),
		})
	}
	return out, nil
}

func (s *daypartService) OrphanedDays(req *dto.OrphanedDaysRequest) (*dto.OrphanedDaysResponse, error) {
	before, err := daypart.NewDaySet(req.Before...)
	if err != nil {
		return nil, err
	}
	after, err := daypart.NewDaySet(req.After...)
	if err != nil {
		return nil, err
	}
	others := make([]daypart.Schedule, 0, len(req.Others))
	for i := range req.Others {
		o, err := scheduleFromInput(&req.Others[i])
		if err != nil {
			return nil, err
		}
		if o.Kind == daypart.KindRegular {
			others = append(others, o)
		}
	}
	return &dto.OrphanedDaysResponse{Days: daypart.FindOrphanedDays(before, after, others).Days()}, nil
}

func (s *daypartService) MergeCandidates(req *dto.MergeCandidatesRequest) ([]dto.ScheduleResponse, error) {
	saved, err := scheduleFromInput(&req.Saved)
	if err != nil {
		return nil, err
	}
	// 请求中的排期同属一个时段，逻辑名只需一致即可
	const name = "candidate"
	saved.DaypartName = name

	siblings := make([]daypart.Schedule, 0, len(req.Siblings))
	for i := range req.Siblings {
		sib, err := scheduleFromInput(&req.Siblings[i].ScheduleInput)
		if err != nil {
			return nil, err
		}
		sib.ID = req.Siblings[i].ID
		sib.DaypartName = name
		siblings = append(siblings, sib)
	}
	return toScheduleResponses(daypart.FindMergeCandidates(saved, siblings)), nil
}

// ── 提交 ──

// commit 原子提交写计划，成功后使有效配置缓存整体失效
func (s *daypartService) commit(ctx context.Context, snap *snapshot, plan *daypart.CommitPlan, forkedFrom, operatorID string) error {
	cs := toChangeSet(plan, snap, forkedFrom, operatorID)
	if cs.IsEmpty() {
		return nil
	}

	if err := s.repo.ChangeSet.Apply(ctx, cs); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) || errors.Is(err, pkgerrors.ErrDuplicateFork) {
			metrics.IncCommit("conflict")
			s.logger.Warn("写计划提交冲突",
				zap.String("node_id", plan.NodeID),
				zap.String("definition_id", plan.Definition.ID),
				zap.Error(err),
			)
			return err
		}
		metrics.IncCommit("error")
		s.logger.Error("写计划提交失败", zap.String("node_id", plan.NodeID), zap.Error(err))
		return err
	}

	metrics.IncCommit("ok")
	if plan.Forked {
		metrics.IncFork(snap.level.String())
		s.logger.Info("继承定义已分叉",
			zap.String("node_id", plan.NodeID),
			zap.String("from", forkedFrom),
			zap.String("fork", plan.Definition.ID),
			zap.Int("schedules", len(plan.Inserts)),
		)
	}

	if s.cache != nil {
		if err := s.cache.BumpConfigGeneration(ctx); err != nil {
			s.logger.Warn("配置缓存失效失败", zap.Error(err))
		}
	}
	return nil
}

// loadFailed 记录非业务类的加载错误
func (s *daypartService) loadFailed(nodeID string, err error) error {
	if !errors.Is(err, daypart.ErrNodeNotFound) && !errors.Is(err, daypart.ErrInvalidHierarchy) {
		s.logger.Error("加载节点配置失败", zap.String("node_id", nodeID), zap.Error(err))
	}
	return err
}

// ConflictDetails 从冲突类错误中提取可返回给调用方的明细，其它错误返回 nil
func ConflictDetails(err error) interface{} {
	var collision *daypart.DayCollisionError
	if errors.As(err, &collision) {
		var name string
		if len(collision.Conflicts) > 0 {
			name = collision.Conflicts[0].DaypartName
		}
		return toCollisionResponse(name, daypart.CollisionResult{Days: collision.Days, Conflicts: collision.Conflicts})
	}
	var tie *daypart.PriorityTieError
	if errors.As(err, &tie) {
		return toTieResponse(tie)
	}
	return nil
}
