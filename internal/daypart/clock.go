package daypart

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock 一天内的分钟数，0..1440（1440 仅作为结束时间 "24:00"）
type Clock int

const minutesPerDay = 24 * 60

// ParseClock 解析 24 小时制 "HH:MM"
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: 时间格式应为 HH:MM，实际 %q", ErrInvalidSchedule, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: 小时无效 %q", ErrInvalidSchedule, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: 分钟无效 %q", ErrInvalidSchedule, s)
	}
	if h == 24 && m == 0 {
		return minutesPerDay, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: 时间越界 %q", ErrInvalidSchedule, s)
	}
	return Clock(h*60 + m), nil
}

// MustClock 仅用于常量场景与测试
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// interval 半开区间 [start, end)，单位分钟
type interval struct{ start, end int }

// intervals 将时间窗展开为 0..1440 时钟上的半开区间；
// end < start 视为跨越午夜，拆成两段。
func intervals(start, end Clock) []interval {
	if end > start {
		return []interval{{int(start), int(end)}}
	}
	out := []interval{{int(start), minutesPerDay}}
	if end > 0 {
		out = append(out, interval{0, int(end)})
	}
	return out
}
