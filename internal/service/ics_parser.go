package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"daypart-hub/internal/dto"
	"daypart-hub/internal/recurrence"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：把外部节假日日历 (RFC 5545) 转为活动/节假日排期输入。
//
//   - 全天事件使用调用方给出的时间窗，定时事件使用自身的起止时刻
//   - 无限重复的 RRULE 只接受能直接表示的写法：
//     FREQ=YEARLY 单日 → annual_date，跨多日 → annual_date_range，
//     FREQ=YEARLY;BYMONTH=m;BYDAY=±nXX → annual_relative，
//     FREQ=MONTHLY 单日 → monthly_date；其余写法整条跳过
//   - 带 COUNT/UNTIL 的有限重复与无 RRULE 的事件按日展开为 none 规则（单次日期）
//   - 不做时区换算，日期与时刻按日历中的字面值理解
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize = 5 * 1024 * 1024 // 5MB
	// icsMaxExpandDays 单个事件最多展开的单次日期数
	icsMaxExpandDays = 31
)

var ErrICSInvalid = errors.New("ICS 格式解析失败")

var (
	icsWeekdays = [7]rrule.Weekday{
		rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
	}
	// BYDAY 序号 → 月内位置
	icsPositions = map[int]string{1: "first", 2: "second", 3: "third", 4: "fourth", -1: "last"}
)

// icsEvent 解析中间结构
type icsEvent struct {
	Name  string
	Start time.Time // 首日零点
	Days  int       // 覆盖的日历日数，至少 1
	// Rule 非空时整体作为一条重复排期；否则按 Starts 逐日展开
	Rule   *dto.RuleInput
	Starts []time.Time
	// 定时事件的起止时刻，全天事件为空
	StartTime string
	EndTime   string
}

// ParseHolidayICS 解析 ICS 内容；全天事件的时间窗取 startTime/endTime
func ParseHolidayICS(reader io.Reader, startTime, endTime string) ([]dto.ScheduleInput, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrICSInvalid, err)
	}

	var result []dto.ScheduleInput
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp)
		if !ok {
			continue
		}
		result = append(result, evt.toInputs(startTime, endTime)...)
	}
	return result, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent) (icsEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return icsEvent{}, false
	}

	start, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return icsEvent{}, false
	}

	out := icsEvent{
		Name:  strings.TrimSpace(summary.Value),
		Start: recurrence.Truncate(start),
		Days:  1,
	}

	end, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd)
	switch {
	case allDay:
		// 全天事件的 DTEND 不包含在内
		if err == nil {
			if n := int(recurrence.Truncate(end).Sub(out.Start).Hours() / 24); n > 1 {
				out.Days = n
			}
		}
	case err != nil:
		return icsEvent{}, false
	default:
		out.StartTime = start.Format("15:04")
		out.EndTime = end.Format("15:04")
		if recurrence.Truncate(end).After(out.Start) && out.EndTime == "00:00" {
			out.EndTime = "24:00"
		}
	}

	out.Starts = []time.Time{out.Start}
	if rr := evt.GetProperty(ics.ComponentPropertyRrule); rr != nil {
		if !out.applyRRule(rr.Value) {
			return icsEvent{}, false
		}
	}
	return out, true
}

// applyRRule 有限重复展开为各次起始日；无限重复映射为一条规则，无法表示时返回 false
func (e *icsEvent) applyRRule(value string) bool {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return false
	}

	if opt.Count > 0 || !opt.Until.IsZero() {
		opt.Dtstart = e.Start
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return false
		}
		e.Starts = e.Starts[:0]
		next := r.Iterator()
		for len(e.Starts)*e.Days < icsMaxExpandDays {
			d, ok := next()
			if !ok {
				break
			}
			e.Starts = append(e.Starts, recurrence.Truncate(d))
		}
		return len(e.Starts) > 0
	}

	rule, ok := e.openEndedRule(opt)
	if !ok {
		return false
	}
	e.Rule = rule
	return true
}

// openEndedRule 无限重复的 RRULE → 年度/每月规则
func (e *icsEvent) openEndedRule(opt *rrule.ROption) (*dto.RuleInput, bool) {
	if opt.Interval > 1 || len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 ||
		len(opt.Byweekno) > 0 || len(opt.Byeaster) > 0 {
		return nil, false
	}
	month, day := int(e.Start.Month()), e.Start.Day()

	switch opt.Freq {
	case rrule.YEARLY:
		if len(opt.Byweekday) > 0 {
			if len(opt.Byweekday) != 1 || len(opt.Bymonth) != 1 || len(opt.Bymonthday) > 0 || e.Days != 1 {
				return nil, false
			}
			pos, wd, ok := relativeWeekday(opt.Byweekday[0])
			if !ok {
				return nil, false
			}
			return &dto.RuleInput{Type: "annual_relative", Month: opt.Bymonth[0], Position: pos, Weekday: &wd}, true
		}
		if !onlyValue(opt.Bymonth, month) || !onlyValue(opt.Bymonthday, day) {
			return nil, false
		}
		if e.Days == 1 {
			return &dto.RuleInput{Type: "annual_date", Month: month, Day: day}, true
		}
		// 2/29 起始的区间平年没有起点
		if (month == 2 && day == 29) || e.Days > 366 {
			return nil, false
		}
		from := recurrence.FormatDate(e.Start)
		to := recurrence.FormatDate(e.Start.AddDate(0, 0, e.Days-1))
		return &dto.RuleInput{Type: "annual_date_range", StartDate: &from, EndDate: &to}, true

	case rrule.MONTHLY:
		if e.Days != 1 || len(opt.Bymonth) > 0 || len(opt.Byweekday) > 0 || !onlyValue(opt.Bymonthday, day) {
			return nil, false
		}
		return &dto.RuleInput{Type: "monthly_date", Day: day}, true
	}
	return nil, false
}

// relativeWeekday 只接受 ±n 明确的 BYDAY（如 4TH、-1MO）
func relativeWeekday(wd rrule.Weekday) (string, int, bool) {
	for n, pos := range icsPositions {
		for d := range icsWeekdays {
			if wd == icsWeekdays[d].Nth(n) {
				return pos, d, true
			}
		}
	}
	return "", 0, false
}

// onlyValue BY 列表为空，或恰好只有 v
func onlyValue(list []int, v int) bool {
	return len(list) == 0 || (len(list) == 1 && list[0] == v)
}

// toInputs 转为排期输入
func (e icsEvent) toInputs(startTime, endTime string) []dto.ScheduleInput {
	if e.StartTime != "" {
		startTime, endTime = e.StartTime, e.EndTime
	}
	base := dto.ScheduleInput{
		Kind:      "event_holiday",
		StartTime: startTime,
		EndTime:   endTime,
		Name:      e.Name,
	}

	if e.Rule != nil {
		base.Rule = e.Rule
		return []dto.ScheduleInput{base}
	}

	out := make([]dto.ScheduleInput, 0, min(len(e.Starts)*e.Days, icsMaxExpandDays))
	for _, start := range e.Starts {
		for i := 0; i < e.Days && len(out) < icsMaxExpandDays; i++ {
			in := base
			date := recurrence.FormatDate(start.AddDate(0, 0, i))
			in.Rule = &dto.RuleInput{Type: "none", Date: &date}
			out = append(out, in)
		}
	}
	return out
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，allDay 表示仅有日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	if t, err := time.Parse("20060102", val); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
