package service

import (
	"fmt"
	"time"

	"daypart-hub/internal/daypart"
	"daypart-hub/internal/dto"
	"daypart-hub/internal/model"
	"daypart-hub/internal/recurrence"
	"daypart-hub/internal/repository"
)

// ── model → daypart ──

func toDomainNode(n *model.OrgNode) (daypart.Node, error) {
	level, err := daypart.ParseLevel(n.Level)
	if err != nil {
		return daypart.Node{}, err
	}
	node := daypart.Node{ID: n.NodeID, Level: level, Name: n.Name}
	if n.ParentID != nil {
		node.ParentID = *n.ParentID
	}
	return node, nil
}

func toDomainDefinition(d *model.DaypartDefinition) daypart.Definition {
	return daypart.Definition{
		ID:           d.DefinitionID,
		Name:         d.Name,
		DisplayLabel: d.DisplayLabel,
		Color:        d.Color,
		Icon:         d.Icon,
		SortOrder:    d.SortOrder,
		OwnerNodeID:  d.OwnerNodeID,
		IsCustomized: d.IsCustomized,
	}
}

func toDomainSchedule(s *model.DaypartSchedule) (daypart.Schedule, error) {
	days, err := daypart.NewDaySet(s.DaysOfWeek...)
	if err != nil {
		return daypart.Schedule{}, fmt.Errorf("排期 %s: %w", s.ScheduleID, err)
	}
	start, err := daypart.ParseClock(s.StartTime)
	if err != nil {
		return daypart.Schedule{}, fmt.Errorf("排期 %s: %w", s.ScheduleID, err)
	}
	end, err := daypart.ParseClock(s.EndTime)
	if err != nil {
		return daypart.Schedule{}, fmt.Errorf("排期 %s: %w", s.ScheduleID, err)
	}

	out := daypart.Schedule{
		ID:           s.ScheduleID,
		DefinitionID: s.DefinitionID,
		Days:         days,
		Start:        start,
		End:          end,
		Kind:         daypart.Kind(s.ScheduleKind),
		Name:         s.ScheduleName,
		Priority:     s.PriorityLevel,
	}
	if s.RecurrenceType != nil {
		rule := recurrence.Rule{
			Kind:      recurrence.Kind(*s.RecurrenceType),
			Date:      s.RecurrenceDate,
			StartDate: s.RecurrenceStartDate,
			EndDate:   s.RecurrenceEndDate,
		}
		if s.RecurrenceMonth != nil {
			rule.Month = *s.RecurrenceMonth
		}
		if s.RecurrenceDay != nil {
			rule.Day = *s.RecurrenceDay
		}
		if s.RecurrencePosition != nil {
			rule.Position = recurrence.Position(*s.RecurrencePosition)
		}
		if s.RecurrenceWeekday != nil {
			wd := time.Weekday(*s.RecurrenceWeekday)
			rule.Weekday = &wd
		}
		out.Rule = &rule
	}
	return out, nil
}

// ── daypart → model ──

func toModelDefinition(d *daypart.Definition) *model.DaypartDefinition {
	return &model.DaypartDefinition{
		DefinitionID: d.ID,
		OwnerNodeID:  d.OwnerNodeID,
		Name:         d.Name,
		DisplayLabel: d.DisplayLabel,
		Color:        d.Color,
		Icon:         d.Icon,
		SortOrder:    d.SortOrder,
		IsCustomized: d.IsCustomized,
	}
}

func toModelSchedule(s daypart.Schedule) model.DaypartSchedule {
	row := model.DaypartSchedule{
		ScheduleID:    s.ID,
		DefinitionID:  s.DefinitionID,
		DaysOfWeek:    model.Weekdays(s.Days.Days()),
		StartTime:     s.Start.String(),
		EndTime:       s.End.String(),
		ScheduleKind:  string(s.Kind),
		ScheduleName:  s.Name,
		PriorityLevel: s.Priority,
	}
	if r := s.Rule; r != nil {
		kind := string(r.Kind)
		row.RecurrenceType = &kind
		row.RecurrenceDate = r.Date
		row.RecurrenceStartDate = r.StartDate
		row.RecurrenceEndDate = r.EndDate
		if r.Month != 0 {
			m := r.Month
			row.RecurrenceMonth = &m
		}
		if r.Day != 0 {
			d := r.Day
			row.RecurrenceDay = &d
		}
		if r.Position != "" {
			p := string(r.Position)
			row.RecurrencePosition = &p
		}
		if r.Weekday != nil {
			wd := int(*r.Weekday)
			row.RecurrenceWeekday = &wd
		}
	}
	return row
}

// toChangeSet 把写计划转成行级变更；更新与删除沿用快照中的版本号做乐观锁。
// forkedFrom 为分叉来源定义，仅在计划新建分叉时写入。
func toChangeSet(plan *daypart.CommitPlan, snap *snapshot, forkedFrom, operatorID string) *repository.ChangeSet {
	cs := &repository.ChangeSet{
		OperatorID:         operatorID,
		DeleteDefinitionID: plan.DeleteDefinitionID,
		Deletes:            plan.Deletes,
	}
	// 在已有定义上改排期时锁住该定义；新建/分叉由唯一索引把关
	switch {
	case plan.DeleteDefinitionID != "":
		cs.GuardDefinitionID = plan.DeleteDefinitionID
	case plan.CreateDefinition == nil && plan.Definition.ID != "":
		cs.GuardDefinitionID = plan.Definition.ID
	}
	if cs.GuardDefinitionID != "" {
		cs.GuardVersion = snap.defVersions[cs.GuardDefinitionID]
	}
	if plan.CreateDefinition != nil {
		def := toModelDefinition(plan.CreateDefinition)
		if plan.Forked && forkedFrom != "" {
			def.ForkedFromID = &forkedFrom
		}
		def.Touch(operatorID, true)
		cs.CreateDefinition = def
	}
	if plan.UpdateDefinition != nil {
		def := toModelDefinition(plan.UpdateDefinition)
		def.Version = snap.defVersions[def.DefinitionID]
		def.Touch(operatorID, false)
		cs.UpdateDefinition = def
	}
	for _, s := range plan.Inserts {
		row := toModelSchedule(s)
		row.Touch(operatorID, true)
		cs.Inserts = append(cs.Inserts, row)
	}
	for _, s := range plan.Updates {
		row := toModelSchedule(s)
		row.Version = snap.scheduleVersions[row.ScheduleID]
		row.Touch(operatorID, false)
		cs.Updates = append(cs.Updates, row)
	}
	return cs
}

// ── dto → daypart ──

func ruleFromInput(in *dto.RuleInput) (*recurrence.Rule, error) {
	if in == nil {
		return nil, nil
	}
	rule := &recurrence.Rule{
		Kind:     recurrence.Kind(in.Type),
		Month:    in.Month,
		Day:      in.Day,
		Position: recurrence.Position(in.Position),
	}
	var err error
	if rule.Date, err = parseOptionalDate(in.Date); err != nil {
		return nil, err
	}
	if rule.StartDate, err = parseOptionalDate(in.StartDate); err != nil {
		return nil, err
	}
	if rule.EndDate, err = parseOptionalDate(in.EndDate); err != nil {
		return nil, err
	}
	if in.Weekday != nil {
		wd := time.Weekday(*in.Weekday)
		rule.Weekday = &wd
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := recurrence.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scheduleFromInput(in *dto.ScheduleInput) (daypart.Schedule, error) {
	if in == nil {
		return daypart.Schedule{}, fmt.Errorf("%w: 缺少排期内容", daypart.ErrInvalidSchedule)
	}
	days, err := daypart.NewDaySet(in.Days...)
	if err != nil {
		return daypart.Schedule{}, err
	}
	start, err := daypart.ParseClock(in.StartTime)
	if err != nil {
		return daypart.Schedule{}, err
	}
	end, err := daypart.ParseClock(in.EndTime)
	if err != nil {
		return daypart.Schedule{}, err
	}
	rule, err := ruleFromInput(in.Rule)
	if err != nil {
		return daypart.Schedule{}, err
	}
	s := daypart.Schedule{
		Days:  days,
		Start: start,
		End:   end,
		Kind:  daypart.Kind(in.Kind),
		Name:  in.Name,
		Rule:  rule,
	}
	s.Priority = daypart.PriorityOf(s)
	if err := s.Validate(); err != nil {
		return daypart.Schedule{}, err
	}
	return s, nil
}

// ── daypart → dto ──

func toRuleResponse(r *recurrence.Rule) *dto.RuleResponse {
	if r == nil {
		return nil
	}
	out := &dto.RuleResponse{
		Type:      string(r.Kind),
		Month:     r.Month,
		Day:       r.Day,
		Position:  string(r.Position),
		Date:      formatOptionalDate(r.Date),
		StartDate: formatOptionalDate(r.StartDate),
		EndDate:   formatOptionalDate(r.EndDate),
	}
	if r.Weekday != nil {
		wd := int(*r.Weekday)
		out.Weekday = &wd
	}
	return out
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := recurrence.FormatDate(*t)
	return &s
}

func toScheduleResponse(s daypart.Schedule) dto.ScheduleResponse {
	return dto.ScheduleResponse{
		ID:           s.ID,
		DefinitionID: s.DefinitionID,
		Kind:         string(s.Kind),
		Days:         s.Days.Days(),
		StartTime:    s.Start.String(),
		EndTime:      s.End.String(),
		Name:         s.Name,
		Rule:         toRuleResponse(s.Rule),
		Priority:     s.Priority,
	}
}

func toScheduleResponses(schedules []daypart.Schedule) []dto.ScheduleResponse {
	out := make([]dto.ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleResponse(s))
	}
	return out
}

func toDefinitionResponse(d daypart.Definition, nodeID string) dto.DefinitionResponse {
	return dto.DefinitionResponse{
		ID:           d.ID,
		Name:         d.Name,
		DisplayLabel: d.DisplayLabel,
		Color:        d.Color,
		Icon:         d.Icon,
		SortOrder:    d.SortOrder,
		OwnerNodeID:  d.OwnerNodeID,
		IsCustomized: d.IsCustomized,
		Inherited:    d.OwnerNodeID != nodeID,
	}
}

func toEffectiveConfigResponse(cfg daypart.EffectiveConfig) *dto.EffectiveConfigResponse {
	out := &dto.EffectiveConfigResponse{
		NodeID:   cfg.NodeID,
		Dayparts: make([]dto.DefinitionConfig, 0, len(cfg.Definitions)),
	}
	for _, d := range cfg.Definitions {
		out.Dayparts = append(out.Dayparts, dto.DefinitionConfig{
			Definition: toDefinitionResponse(d, cfg.NodeID),
			Schedules:  toScheduleResponses(cfg.SchedulesByDefinition[d.ID]),
		})
	}
	return out
}

func toCommitPlanResponse(plan *daypart.CommitPlan) *dto.CommitPlanResponse {
	out := &dto.CommitPlanResponse{
		NodeID:             plan.NodeID,
		Forked:             plan.Forked,
		DeleteDefinitionID: plan.DeleteDefinitionID,
		Inserts:            toScheduleResponses(plan.Inserts),
		Updates:            toScheduleResponses(plan.Updates),
		Deletes:            append([]string{}, plan.Deletes...),
		Result:             toScheduleResponses(plan.Result),
	}
	if plan.Definition.ID != "" {
		d := toDefinitionResponse(plan.Definition, plan.NodeID)
		out.Definition = &d
	}
	if plan.Target != nil {
		t := toScheduleResponse(*plan.Target)
		out.Target = &t
	}
	return out
}

func toDayPlanResponse(nodeID string, plan daypart.DayPlan) *dto.DayPlanResponse {
	out := &dto.DayPlanResponse{
		NodeID:   nodeID,
		Date:     recurrence.FormatDate(plan.Date),
		Entries:  make([]dto.DayEntryResponse, 0, len(plan.Entries)),
		Overlaps: make([]dto.OverlapResponse, 0, len(plan.Overlaps)),
	}
	for _, e := range plan.Entries {
		entry := dto.DayEntryResponse{Definition: toDefinitionResponse(e.Definition, nodeID)}
		if e.Schedule != nil {
			s := toScheduleResponse(*e.Schedule)
			entry.Schedule = &s
		}
		if e.Tie != nil {
			entry.Tie = toTieResponse(e.Tie)
		}
		out.Entries = append(out.Entries, entry)
	}
	for _, o := range plan.Overlaps {
		out.Overlaps = append(out.Overlaps, dto.OverlapResponse{
			A:    toScheduleResponse(o.A),
			B:    toScheduleResponse(o.B),
			Kind: string(o.Kind),
			Days: o.Days.Days(),
		})
	}
	return out
}

func toTieResponse(t *daypart.PriorityTieError) *dto.PriorityTieResponse {
	return &dto.PriorityTieResponse{Priority: t.Priority, Tied: toScheduleResponses(t.Tied)}
}

func toCollisionResponse(name string, r daypart.CollisionResult) *dto.CollisionResponse {
	return &dto.CollisionResponse{
		DaypartName: name,
		Days:        r.Days.Days(),
		Conflicts:   toScheduleResponses(r.Conflicts),
	}
}
