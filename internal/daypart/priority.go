package daypart

import (
	"sort"
	"time"

	"daypart-hub/internal/recurrence"
)

// 优先级：同一日期同一时段被多个排期覆盖时，数值大者生效
const (
	PriorityRegular    = 10
	PriorityEventRange = 50
	PriorityEventDay   = 100
)

// PriorityOf 由排期类型与重复规则变体推导优先级
func PriorityOf(s Schedule) int {
	if s.Kind != KindEventHoliday {
		return PriorityRegular
	}
	if s.Rule != nil && s.Rule.IsRange() {
		return PriorityEventRange
	}
	return PriorityEventDay
}

// ActiveOn 筛出在 date 当天生效的排期
func ActiveOn(schedules []Schedule, date time.Time) []Schedule {
	weekday := int(date.Weekday())
	var active []Schedule
	for _, s := range schedules {
		switch s.Kind {
		case KindRegular:
			if s.Days.Has(weekday) {
				active = append(active, s)
			}
		case KindEventHoliday:
			if s.Rule == nil {
				if s.Days.Has(weekday) {
					active = append(active, s)
				}
				continue
			}
			if !s.Days.IsEmpty() && !s.Days.Has(weekday) {
				continue
			}
			if recurrence.OccursOn(*s.Rule, date) {
				active = append(active, s)
			}
		}
	}
	return active
}

// Resolve 选出优先级最高的排期；最高优先级并列时返回 *PriorityTieError
func Resolve(candidates []Schedule) (Schedule, error) {
	if len(candidates) == 0 {
		return Schedule{}, ErrNoCandidates
	}

	best := PriorityOf(candidates[0])
	for _, c := range candidates[1:] {
		if p := PriorityOf(c); p > best {
			best = p
		}
	}

	var top []Schedule
	for _, c := range candidates {
		if PriorityOf(c) == best {
			top = append(top, c)
		}
	}
	if len(top) > 1 {
		sort.Slice(top, func(i, j int) bool { return top[i].ID < top[j].ID })
		return Schedule{}, &PriorityTieError{Priority: best, Tied: top}
	}
	return top[0], nil
}

// ResolveDate 等价于 Resolve(ActiveOn(schedules, date))
func ResolveDate(schedules []Schedule, date time.Time) (Schedule, error) {
	return Resolve(ActiveOn(schedules, date))
}
