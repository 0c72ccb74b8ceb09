package daypart

import (
	"fmt"
	"strings"
)

// DaySet 星期集合，位 0..6 对应周日..周六
type DaySet uint8

const allDays DaySet = 1<<7 - 1

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// NewDaySet 由星期整数构造集合，重复值合并，越界值报错
func NewDaySet(days ...int) (DaySet, error) {
	var s DaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("%w: day_of_week=%d 超出 0-6", ErrInvalidSchedule, d)
		}
		s |= 1 << d
	}
	return s, nil
}

// MustDaySet 仅用于常量场景与测试
func MustDaySet(days ...int) DaySet {
	s, err := NewDaySet(days...)
	if err != nil {
		panic(err)
	}
	return s
}

// Has 是否包含某天
func (s DaySet) Has(day int) bool {
	return day >= 0 && day <= 6 && s&(1<<day) != 0
}

func (s DaySet) Union(o DaySet) DaySet      { return (s | o) & allDays }
func (s DaySet) Intersect(o DaySet) DaySet  { return s & o }
func (s DaySet) Difference(o DaySet) DaySet { return s &^ o }
func (s DaySet) Disjoint(o DaySet) bool     { return s&o == 0 }
func (s DaySet) IsEmpty() bool              { return s&allDays == 0 }

// Len 集合元素个数
func (s DaySet) Len() int {
	n := 0
	for d := 0; d < 7; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Days 升序返回星期整数
func (s DaySet) Days() []int {
	days := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s DaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, dayNames[d])
	}
	return "{" + strings.Join(names, ",") + "}"
}
