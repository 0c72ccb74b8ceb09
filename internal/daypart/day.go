package daypart

import (
	"errors"
	"time"
)

// DayEntry 某时段在某日的裁决结果。Schedule 为空表示当天无排期；
// Tie 非空表示最高优先级并列，未做裁决。
type DayEntry struct {
	Definition Definition
	Schedule   *Schedule
	Tie        *PriorityTieError
}

// DayPlan 节点某一天的生效排期
type DayPlan struct {
	Date     time.Time
	Entries  []DayEntry
	Overlaps []Overlap
}

// ResolveDay 对有效配置中的每个时段按优先级裁决 date 当天的排期，
// 再对各时段胜出的排期做跨时段时间重叠分析。
func ResolveDay(cfg EffectiveConfig, date time.Time) DayPlan {
	plan := DayPlan{Date: date}
	day := MustDaySet(int(date.Weekday()))

	var winners []Schedule
	for _, d := range cfg.Definitions {
		entry := DayEntry{Definition: d}
		s, err := ResolveDate(cfg.SchedulesByDefinition[d.ID], date)
		var tie *PriorityTieError
		switch {
		case err == nil:
			entry.Schedule = &s
			w := s
			w.Days = day
			winners = append(winners, w)
		case errors.As(err, &tie):
			entry.Tie = tie
		}
		plan.Entries = append(plan.Entries, entry)
	}

	plan.Overlaps = DetectTimeOverlaps(winners)
	return plan
}
