package daypart

import "sort"

// OverlapKind 两个时间窗的重叠形态
type OverlapKind string

const (
	OverlapPartial   OverlapKind = "partial"
	OverlapContains  OverlapKind = "contains" // A 完全包含 B
	OverlapIdentical OverlapKind = "identical"
)

// Overlap 共享星期且时间窗相交的一对排期
type Overlap struct {
	A    Schedule
	B    Schedule
	Kind OverlapKind
	Days DaySet
}

// DetectTimeOverlaps 找出所有共享至少一个星期且时间窗相交的无序排期对。
// 仅作提示：不同时段之间允许时间重叠。
func DetectTimeOverlaps(schedules []Schedule) []Overlap {
	sorted := make([]Schedule, len(schedules))
	copy(sorted, schedules)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].ID < sorted[j].ID
	})

	var overlaps []Overlap
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			shared := a.Days.Intersect(b.Days)
			if shared.IsEmpty() {
				continue
			}
			ia, ib := intervals(a.Start, a.End), intervals(b.Start, b.End)
			if !intersects(ia, ib) {
				continue
			}

			kind := OverlapPartial
			switch {
			case a.Start == b.Start && a.End == b.End:
				kind = OverlapIdentical
			case covers(ia, ib):
				kind = OverlapContains
			case covers(ib, ia):
				kind = OverlapContains
				a, b = b, a
			}
			overlaps = append(overlaps, Overlap{A: a, B: b, Kind: kind, Days: shared})
		}
	}
	return overlaps
}

// TimesOverlap 两个时间窗是否相交（半开区间）
func TimesOverlap(start1, end1, start2, end2 Clock) bool {
	return intersects(intervals(start1, end1), intervals(start2, end2))
}

func intersects(a, b []interval) bool {
	for _, x := range a {
		for _, y := range b {
			if x.start < y.end && y.start < x.end {
				return true
			}
		}
	}
	return false
}

// covers outer 是否覆盖 inner 的每一段
func covers(outer, inner []interval) bool {
	for _, in := range inner {
		ok := false
		for _, out := range outer {
			if out.start <= in.start && in.end <= out.end {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
