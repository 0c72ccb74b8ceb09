package dto

// ── 时段模块 DTO ──

// RuleInput 重复规则，日期统一为 "2006-01-02"
type RuleInput struct {
	Type      string  `json:"type"       binding:"required,oneof=none annual_date monthly_date annual_relative annual_date_range"`
	Date      *string `json:"date"`
	Month     int     `json:"month"      binding:"omitempty,min=1,max=12"`
	Day       int     `json:"day"        binding:"omitempty,min=1,max=31"`
	Position  string  `json:"position"   binding:"omitempty,oneof=first second third fourth last"`
	Weekday   *int    `json:"weekday"    binding:"omitempty,min=0,max=6"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// ScheduleInput 新建/修改排期时提交的字段
type ScheduleInput struct {
	Kind      string     `json:"kind"       binding:"required,oneof=regular event_holiday"`
	Days      []int      `json:"days"       binding:"omitempty,dive,min=0,max=6"` // 0=周日
	StartTime string     `json:"start_time" binding:"required"`                   // "11:00"
	EndTime   string     `json:"end_time"   binding:"required"`                   // "14:00"，允许 "24:00"
	Name      string     `json:"name"       binding:"omitempty,max=100"`
	Rule      *RuleInput `json:"rule"`
}

// ScheduleEditRequest 排期编辑（plan 与 apply 共用）
type ScheduleEditRequest struct {
	Op         string         `json:"op"          binding:"required,oneof=insert update delete"`
	ScheduleID string         `json:"schedule_id"`
	Schedule   *ScheduleInput `json:"schedule"`
}

// MergeRequest 合并排期请求
type MergeRequest struct {
	SavedID      string   `json:"saved_id"      binding:"required"`
	CandidateIDs []string `json:"candidate_ids" binding:"required,min=1"`
}

// CreateDefinitionRequest 新建时段定义请求
type CreateDefinitionRequest struct {
	Name         string `json:"name"          binding:"required,max=50"`
	DisplayLabel string `json:"display_label" binding:"omitempty,max=100"`
	Color        string `json:"color"         binding:"omitempty,max=20"`
	Icon         string `json:"icon"          binding:"omitempty,max=50"`
	SortOrder    int    `json:"sort_order"`
}

// UpdateDefinitionRequest 修改展示属性请求，空字段保持不变
type UpdateDefinitionRequest struct {
	DisplayLabel *string `json:"display_label" binding:"omitempty,max=100"`
	Color        *string `json:"color"         binding:"omitempty,max=20"`
	Icon         *string `json:"icon"          binding:"omitempty,max=50"`
	SortOrder    *int    `json:"sort_order"`
}

// ValidateDaysRequest 星期冲突预检请求
type ValidateDaysRequest struct {
	Days              []int  `json:"days"                binding:"required,min=1,dive,min=0,max=6"`
	ExcludeScheduleID string `json:"exclude_schedule_id"`
}

// DayQuery 单日裁决查询参数
type DayQuery struct {
	Date string `form:"date" binding:"required"` // "2006-01-02"
}

// OccurrencesRequest 重复规则展开请求
type OccurrencesRequest struct {
	Rule  RuleInput `json:"rule"`
	AsOf  string    `json:"as_of" binding:"required"`
	Count int       `json:"count" binding:"required,min=1"`
}

// OrphanedDaysRequest 孤立星期检查请求
type OrphanedDaysRequest struct {
	Before []int           `json:"before" binding:"dive,min=0,max=6"`
	After  []int           `json:"after"  binding:"dive,min=0,max=6"`
	Others []ScheduleInput `json:"others" binding:"dive"`
}

// MergeCandidatesRequest 合并候选检查请求
type MergeCandidatesRequest struct {
	Saved    ScheduleInput        `json:"saved"`
	Siblings []IdentifiedSchedule `json:"siblings" binding:"dive"`
}

// IdentifiedSchedule 携带 ID 的排期输入
type IdentifiedSchedule struct {
	ID string `json:"id" binding:"required"`
	ScheduleInput
}

// ExportEventsQuery 活动日历导出参数
type ExportEventsQuery struct {
	From  string `form:"from"` // 默认今天
	Count int    `form:"count" binding:"omitempty,min=1"`
}

// ── 响应 ──

// RuleResponse 重复规则
type RuleResponse struct {
	Type      string  `json:"type"`
	Date      *string `json:"date,omitempty"`
	Month     int     `json:"month,omitempty"`
	Day       int     `json:"day,omitempty"`
	Position  string  `json:"position,omitempty"`
	Weekday   *int    `json:"weekday,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// ScheduleResponse 排期
type ScheduleResponse struct {
	ID           string        `json:"id"`
	DefinitionID string        `json:"definition_id"`
	Kind         string        `json:"kind"`
	Days         []int         `json:"days"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	Name         string        `json:"name,omitempty"`
	Rule         *RuleResponse `json:"rule,omitempty"`
	Priority     int           `json:"priority"`
}

// DefinitionResponse 时段定义
type DefinitionResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayLabel string `json:"display_label"`
	Color        string `json:"color,omitempty"`
	Icon         string `json:"icon,omitempty"`
	SortOrder    int    `json:"sort_order"`
	OwnerNodeID  string `json:"owner_node_id"`
	IsCustomized bool   `json:"is_customized"`
	Inherited    bool   `json:"inherited"` // 归属节点不是当前节点
}

// DefinitionConfig 定义及其生效排期
type DefinitionConfig struct {
	Definition DefinitionResponse `json:"definition"`
	Schedules  []ScheduleResponse `json:"schedules"`
}

// EffectiveConfigResponse 节点有效配置
type EffectiveConfigResponse struct {
	NodeID   string             `json:"node_id"`
	Dayparts []DefinitionConfig `json:"dayparts"`
}

// CollisionResponse 星期冲突结果
type CollisionResponse struct {
	DaypartName string             `json:"daypart_name"`
	Days        []int              `json:"days"`
	Conflicts   []ScheduleResponse `json:"conflicts"`
}

// PriorityTieResponse 优先级并列
type PriorityTieResponse struct {
	Priority int                `json:"priority"`
	Tied     []ScheduleResponse `json:"tied"`
}

// DayEntryResponse 某时段的当日裁决
type DayEntryResponse struct {
	Definition DefinitionResponse   `json:"definition"`
	Schedule   *ScheduleResponse    `json:"schedule,omitempty"`
	Tie        *PriorityTieResponse `json:"tie,omitempty"`
}

// OverlapResponse 跨时段时间重叠提示
type OverlapResponse struct {
	A    ScheduleResponse `json:"a"`
	B    ScheduleResponse `json:"b"`
	Kind string           `json:"kind"`
	Days []int            `json:"days"`
}

// DayPlanResponse 单日生效排期
type DayPlanResponse struct {
	NodeID   string             `json:"node_id"`
	Date     string             `json:"date"`
	Entries  []DayEntryResponse `json:"entries"`
	Overlaps []OverlapResponse  `json:"overlaps"`
}

// CommitPlanResponse 写计划（dry run 或已提交）
type CommitPlanResponse struct {
	NodeID             string              `json:"node_id"`
	Forked             bool                `json:"forked"`
	Definition         *DefinitionResponse `json:"definition,omitempty"`
	DeleteDefinitionID string              `json:"delete_definition_id,omitempty"`
	Inserts            []ScheduleResponse  `json:"inserts"`
	Updates            []ScheduleResponse  `json:"updates"`
	Deletes            []string            `json:"deletes"`
	Result             []ScheduleResponse  `json:"result"`
	Target             *ScheduleResponse   `json:"target,omitempty"`
}

// ApplyEditResponse 提交结果及后续建议
type ApplyEditResponse struct {
	Plan            CommitPlanResponse `json:"plan"`
	OrphanedDays    []int              `json:"orphaned_days"`
	MergeCandidates []ScheduleResponse `json:"merge_candidates"`
}

// OccurrenceResponse 规则的一次发生
type OccurrenceResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// OrphanedDaysResponse 孤立星期
type OrphanedDaysResponse struct {
	Days []int `json:"days"`
}

// ImportHolidaysQuery 节假日日历导入参数，全天事件使用该时间窗
type ImportHolidaysQuery struct {
	StartTime string `form:"start_time" binding:"required"`
	EndTime   string `form:"end_time"   binding:"required"`
}

// ImportHolidaysResponse 导入结果
type ImportHolidaysResponse struct {
	DefinitionID string             `json:"definition_id"`
	Forked       bool               `json:"forked"`
	Imported     []ScheduleResponse `json:"imported"`
}
