package daypart

import (
	"fmt"
	"sort"
)

// FindOrphanedDays 编辑移除的星期（before − after）中，
// 不再被同一时段任何其它排期覆盖的那些。结果仅用于提示，不会自动补排期。
func FindOrphanedDays(before, after DaySet, others []Schedule) DaySet {
	removed := before.Difference(after)
	var covered DaySet
	for _, s := range others {
		covered = covered.Union(s.Days)
	}
	return removed.Difference(covered)
}

// isMergeCandidate 同一时段、同为常规排期、时间窗完全相同、星期互不相交
func isMergeCandidate(saved, sibling Schedule) bool {
	return sibling.ID != saved.ID &&
		sibling.Kind == KindRegular && saved.Kind == KindRegular &&
		NormalizeName(sibling.DaypartName) == NormalizeName(saved.DaypartName) &&
		sibling.Start == saved.Start && sibling.End == saved.End &&
		sibling.Days.Disjoint(saved.Days)
}

// FindMergeCandidates 可与 saved 合并的兄弟排期，按 ID 排序
func FindMergeCandidates(saved Schedule, siblings []Schedule) []Schedule {
	var result []Schedule
	for _, s := range siblings {
		if isMergeCandidate(saved, s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// MergeResult 合并后的排期与需要删除的候选行
type MergeResult struct {
	Merged     Schedule
	DeletedIDs []string
}

// MergeSchedules 合并星期集合并清空名称（合并后任何单一名称都不准确）。
// 不记录撤销信息，只能手工重新拆分。
func MergeSchedules(saved Schedule, candidates []Schedule) (MergeResult, error) {
	if len(candidates) == 0 {
		return MergeResult{}, fmt.Errorf("%w: 没有可合并的候选排期", ErrNotMergeable)
	}

	merged := saved.clone()
	merged.Name = ""
	deleted := make([]string, 0, len(candidates))
	for _, c := range candidates {
		// 与累积结果比较，候选之间也因此互不相交
		if !isMergeCandidate(merged, c) {
			return MergeResult{}, fmt.Errorf("%w: %s", ErrNotMergeable, c.ID)
		}
		merged.Days = merged.Days.Union(c.Days)
		deleted = append(deleted, c.ID)
	}
	sort.Strings(deleted)
	return MergeResult{Merged: merged, DeletedIDs: deleted}, nil
}
