package recurrence

import (
	"fmt"
	"iter"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ── 重复规则计算器 ──────────────────────────────────────────
//
// 纯函数：规则 → 具体日期。周期性变体交给 rrule-go 展开：
//   - annual_date:       FREQ=YEARLY;BYMONTH=m;BYMONTHDAY=d
//   - monthly_date:      FREQ=MONTHLY;BYMONTHDAY=d（缺少该日的月份跳过）
//   - annual_relative:   FREQ=YEARLY;BYMONTH=m;BYDAY=+nXX / -1XX
//   - annual_date_range: 按起始月日逐年展开，跨度为 start→end 的天数
// ─────────────────────────────────────────────────────────────

// Span 一次具体发生，单日规则 Start == End
type Span struct {
	Start time.Time
	End   time.Time
}

// Contains 日期是否落在 [Start, End]
func (s Span) Contains(date time.Time) bool {
	d := Truncate(date)
	return !d.Before(s.Start) && !d.After(s.End)
}

var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// NextOccurrence 返回 asOf 当天或之后的第一次发生。
// 区间规则若在 asOf 当天仍在进行中，视为尚未过去，返回其起始日。
func NextOccurrence(rule Rule, asOf time.Time) (mo.Option[time.Time], error) {
	if err := rule.Validate(); err != nil {
		return mo.None[time.Time](), err
	}
	for span := range spans(rule, Truncate(asOf), 1) {
		return mo.Some(span.Start), nil
	}
	return mo.None[time.Time](), nil
}

// NextN 惰性序列：最多 n 个发生日期，按时间升序。
// 每次遍历都从头计算，可重复使用；规则无效时序列为空。
func NextN(rule Rule, asOf time.Time, n int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if rule.Validate() != nil {
			return
		}
		for span := range spans(rule, Truncate(asOf), n) {
			if !yield(span.Start) {
				return
			}
		}
	}
}

// Occurrences 校验规则后收集 NextN 的结果
func Occurrences(rule Rule, asOf time.Time, n int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	result := make([]time.Time, 0, max(n, 0))
	for d := range NextN(rule, asOf, n) {
		result = append(result, d)
	}
	return result, nil
}

// Spans 与 Occurrences 相同，但保留区间终点（导出日历时使用）
func Spans(rule Rule, asOf time.Time, n int) ([]Span, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	var result []Span
	for span := range spans(rule, Truncate(asOf), n) {
		result = append(result, span)
	}
	return result, nil
}

// OccursOn 日期是否为规则的一次发生（区间规则：落在某次区间内）
func OccursOn(rule Rule, date time.Time) bool {
	if rule.Validate() != nil {
		return false
	}
	d := Truncate(date)
	for span := range spans(rule, d, 1) {
		return span.Contains(d)
	}
	return false
}

// spans 调用方须已校验规则
func spans(rule Rule, asOf time.Time, n int) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if n <= 0 {
			return
		}

		if rule.Kind == KindNone {
			d := Truncate(*rule.Date)
			if !d.Before(asOf) {
				yield(Span{Start: d, End: d})
			}
			return
		}

		span := rule.spanDays()
		// 向前回退跨度天数，使 asOf 仍处于其中的区间也被包含
		from := asOf.AddDate(0, 0, -span)

		r, err := rule.rrule(from)
		if err != nil {
			return
		}
		next := r.Iterator()
		for i := 0; i < n; i++ {
			start, ok := next()
			if !ok {
				return
			}
			start = Truncate(start)
			if !yield(Span{Start: start, End: start.AddDate(0, 0, span)}) {
				return
			}
		}
	}
}

// rrule 构造从 dtstart 起展开的 rrule-go 规则
func (r Rule) rrule(dtstart time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{Dtstart: dtstart}

	switch r.Kind {
	case KindAnnualDate:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{r.Month}
		opt.Bymonthday = []int{r.Day}
	case KindMonthlyDate:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{r.Day}
	case KindAnnualRelative:
		n, _ := r.Position.nth()
		wd := rruleWeekdays[*r.Weekday]
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{r.Month}
		opt.Byweekday = []rrule.Weekday{wd.Nth(n)}
	case KindAnnualDateRange:
		start := Truncate(*r.StartDate)
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(start.Month())}
		opt.Bymonthday = []int{start.Day()}
	default:
		return nil, fmt.Errorf("%w: %s 规则不可展开", ErrInvalidRule, r.Kind)
	}

	return rrule.NewRRule(opt)
}
