package daypart

import "sort"

// CollisionResult 候选星期中已被占用的部分，以及占用它们的排期
type CollisionResult struct {
	Days      DaySet
	Conflicts []Schedule
}

// HasCollision 是否存在冲突
func (r CollisionResult) HasCollision() bool { return !r.Days.IsEmpty() }

// DetectDayCollisions 检查 candidate 中哪些星期已被同名时段的其它常规排期占用。
// 活动/节假日排期不参与检查，由优先级在使用时裁决；excludeID 为正在编辑的排期。
func DetectDayCollisions(existing []Schedule, daypartName string, candidate DaySet, excludeID string) CollisionResult {
	var result CollisionResult
	if candidate.IsEmpty() {
		return result
	}

	name := NormalizeName(daypartName)
	for _, s := range existing {
		if s.Kind != KindRegular || NormalizeName(s.DaypartName) != name {
			continue
		}
		if excludeID != "" && s.ID == excludeID {
			continue
		}
		hit := s.Days.Intersect(candidate)
		if hit.IsEmpty() {
			continue
		}
		result.Days = result.Days.Union(hit)
		result.Conflicts = append(result.Conflicts, s)
	}

	sort.Slice(result.Conflicts, func(i, j int) bool {
		return result.Conflicts[i].ID < result.Conflicts[j].ID
	})
	return result
}

// ValidateCandidateDays 批量保存前的校验：任一星期冲突即返回 *DayCollisionError
func ValidateCandidateDays(daypartName string, candidate DaySet, existing []Schedule, excludeID string) (CollisionResult, error) {
	result := DetectDayCollisions(existing, daypartName, candidate, excludeID)
	if result.HasCollision() {
		return result, &DayCollisionError{Days: result.Days, Conflicts: result.Conflicts}
	}
	return result, nil
}
