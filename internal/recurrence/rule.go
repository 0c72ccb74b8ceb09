package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// ── 重复规则 ──────────────────────────────────────────────
//
// Rule 是一个标签联合：Kind 决定哪些字段有效，其余变体的字段必须为空。
//   - none:              Date
//   - annual_date:       Month + Day
//   - monthly_date:      Day
//   - annual_relative:   Month + Position + Weekday
//   - annual_date_range: StartDate + EndDate
// ─────────────────────────────────────────────────────────────

// ErrInvalidRule 重复规则缺少必填字段或字段越界
var ErrInvalidRule = errors.New("重复规则无效")

// Kind 重复规则类型
type Kind string

const (
	KindNone            Kind = "none"
	KindAnnualDate      Kind = "annual_date"
	KindMonthlyDate     Kind = "monthly_date"
	KindAnnualRelative  Kind = "annual_relative"
	KindAnnualDateRange Kind = "annual_date_range"
)

// Position 月内第几个星期几
type Position string

const (
	PositionFirst  Position = "first"
	PositionSecond Position = "second"
	PositionThird  Position = "third"
	PositionFourth Position = "fourth"
	PositionLast   Position = "last"
)

// nth 返回 RFC 5545 BYDAY 序号：first..fourth → 1..4，last → -1
func (p Position) nth() (int, bool) {
	switch p {
	case PositionFirst:
		return 1, true
	case PositionSecond:
		return 2, true
	case PositionThird:
		return 3, true
	case PositionFourth:
		return 4, true
	case PositionLast:
		return -1, true
	}
	return 0, false
}

// maxRangeDays 日期区间跨度上限（不含起始日），超过一年的区间没有年度意义
const maxRangeDays = 365

// Rule 重复规则
type Rule struct {
	Kind      Kind          `json:"type"`
	Date      *time.Time    `json:"date,omitempty"`
	Month     int           `json:"month,omitempty"`
	Day       int           `json:"day,omitempty"`
	Position  Position      `json:"position,omitempty"`
	Weekday   *time.Weekday `json:"weekday,omitempty"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`
}

// IsRange 是否为日期区间规则
func (r Rule) IsRange() bool { return r.Kind == KindAnnualDateRange }

// Validate 校验当前变体的必填字段，并拒绝其它变体的残留字段
func (r Rule) Validate() error {
	switch r.Kind {
	case KindNone:
		if r.Date == nil {
			return invalid("none 规则缺少 date")
		}
		return r.rejectExcept("date")

	case KindAnnualDate:
		if err := validMonth(r.Month); err != nil {
			return err
		}
		// 以闰年为基准，允许 2 月 29 日
		if r.Day < 1 || r.Day > daysIn(time.Month(r.Month), 2024) {
			return invalid(fmt.Sprintf("annual_date 的 day=%d 超出 %d 月范围", r.Day, r.Month))
		}
		return r.rejectExcept("month", "day")

	case KindMonthlyDate:
		if r.Day < 1 || r.Day > 31 {
			return invalid(fmt.Sprintf("monthly_date 的 day=%d 超出 1-31", r.Day))
		}
		return r.rejectExcept("day")

	case KindAnnualRelative:
		if err := validMonth(r.Month); err != nil {
			return err
		}
		if _, ok := r.Position.nth(); !ok {
			return invalid(fmt.Sprintf("annual_relative 的 position=%q 无效", r.Position))
		}
		if r.Weekday == nil || *r.Weekday < time.Sunday || *r.Weekday > time.Saturday {
			return invalid("annual_relative 缺少 weekday")
		}
		return r.rejectExcept("month", "position", "weekday")

	case KindAnnualDateRange:
		if r.StartDate == nil || r.EndDate == nil {
			return invalid("annual_date_range 缺少 start_date/end_date")
		}
		start := Truncate(*r.StartDate)
		// 平年没有起点，区间会隔年才出现一次
		if start.Month() == time.February && start.Day() == 29 {
			return invalid("annual_date_range 不能从 2 月 29 日开始")
		}
		span := daysBetween(start, Truncate(*r.EndDate))
		if span < 0 {
			return invalid("annual_date_range 的 end_date 早于 start_date")
		}
		if span > maxRangeDays {
			return invalid("annual_date_range 跨度超过一年")
		}
		return r.rejectExcept("start_date", "end_date")

	case "":
		return invalid("缺少规则类型")
	default:
		return invalid(fmt.Sprintf("未知规则类型 %q", r.Kind))
	}
}

// rejectExcept 确认除 allowed 以外的变体字段均为空
func (r Rule) rejectExcept(allowed ...string) error {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	present := map[string]bool{
		"date":       r.Date != nil,
		"month":      r.Month != 0,
		"day":        r.Day != 0,
		"position":   r.Position != "",
		"weekday":    r.Weekday != nil,
		"start_date": r.StartDate != nil,
		"end_date":   r.EndDate != nil,
	}
	for field, ok := range present {
		if ok && !set[field] {
			return invalid(fmt.Sprintf("%s 规则不允许字段 %s", r.Kind, field))
		}
	}
	return nil
}

// spanDays 区间规则的跨度（天），单日规则为 0
func (r Rule) spanDays() int {
	if !r.IsRange() {
		return 0
	}
	return daysBetween(Truncate(*r.StartDate), Truncate(*r.EndDate))
}

func validMonth(m int) error {
	if m < 1 || m > 12 {
		return invalid(fmt.Sprintf("month=%d 超出 1-12", m))
	}
	return nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, reason)
}
