package service

import (
	"errors"
	"strings"
	"testing"
)

func icsCalendar(events ...string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		strings.Join(events, "") +
		"END:VCALENDAR\r\n"
}

func vevent(uid string, lines ...string) string {
	return "BEGIN:VEVENT\r\nUID:" + uid + "\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

func TestParseHolidayICS_AllDayYearly(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:元旦", "DTSTART;VALUE=DATE:20250101", "DTEND;VALUE=DATE:20250102", "RRULE:FREQ=YEARLY"),
		vevent("b", "SUMMARY:国庆", "DTSTART;VALUE=DATE:20251001", "DTEND;VALUE=DATE:20251008", "RRULE:FREQ=YEARLY;BYMONTH=10"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(got))
	}

	newYear := got[0]
	if newYear.Kind != "event_holiday" || newYear.Name != "元旦" || newYear.StartTime != "09:00" || newYear.EndTime != "21:00" {
		t.Errorf("元旦字段不正确: %+v", newYear)
	}
	if r := newYear.Rule; r == nil || r.Type != "annual_date" || r.Month != 1 || r.Day != 1 {
		t.Errorf("元旦规则不正确: %+v", newYear.Rule)
	}

	// DTEND 不包含在内：10/1 ~ 10/7
	r := got[1].Rule
	if r == nil || r.Type != "annual_date_range" || *r.StartDate != "2025-10-01" || *r.EndDate != "2025-10-07" {
		t.Errorf("国庆规则不正确: %+v", r)
	}
}

func TestParseHolidayICS_RelativeWeekday(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:感恩节", "DTSTART;VALUE=DATE:20251127", "RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=4TH"),
		vevent("b", "SUMMARY:阵亡将士纪念日", "DTSTART;VALUE=DATE:20250526", "RRULE:FREQ=YEARLY;BYMONTH=5;BYDAY=-1MO"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(got))
	}

	tests := []struct {
		month    int
		position string
		weekday  int
	}{
		{11, "fourth", 4},
		{5, "last", 1},
	}
	for i, tt := range tests {
		r := got[i].Rule
		if r == nil || r.Type != "annual_relative" || r.Month != tt.month || r.Position != tt.position ||
			r.Weekday == nil || *r.Weekday != tt.weekday {
			t.Errorf("%s 期望 annual_relative %d/%s/%d，实际 %+v", got[i].Name, tt.month, tt.position, tt.weekday, r)
		}
	}
}

func TestParseHolidayICS_BoundedRuleExpanded(t *testing.T) {
	ics := icsCalendar(
		// 只发生一次：DTEND 不包含在内，1/28 ~ 2/4
		vevent("a", "SUMMARY:春节", "DTSTART;VALUE=DATE:20250128", "DTEND;VALUE=DATE:20250205", "RRULE:FREQ=YEARLY;COUNT=1"),
		// UNTIL 落在首年内
		vevent("b", "SUMMARY:开业周年", "DTSTART;VALUE=DATE:20250301", "RRULE:FREQ=YEARLY;UNTIL=20251231"),
		vevent("c", "SUMMARY:周末市集", "DTSTART;VALUE=DATE:20250607", "RRULE:FREQ=WEEKLY;COUNT=3"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	want := []string{
		"2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31", "2025-02-01", "2025-02-02", "2025-02-03", "2025-02-04",
		"2025-03-01",
		"2025-06-07", "2025-06-14", "2025-06-21",
	}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d", len(want), len(got))
	}
	for i, d := range want {
		if r := got[i].Rule; r == nil || r.Type != "none" || *r.Date != d {
			t.Errorf("第 %d 条期望 none %s，实际 %+v", i, d, r)
		}
	}
}

func TestParseHolidayICS_SkipsUnsupportedRules(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:每周例会", "DTSTART;VALUE=DATE:20250602", "RRULE:FREQ=WEEKLY"),
		vevent("b", "SUMMARY:隔年庆典", "DTSTART;VALUE=DATE:20250501", "RRULE:FREQ=YEARLY;INTERVAL=2"),
		vevent("c", "SUMMARY:十一月每个周四", "DTSTART;VALUE=DATE:20251106", "RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=TH"),
		vevent("d", "SUMMARY:多个周几", "DTSTART;VALUE=DATE:20251103", "RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1MO,2MO"),
		vevent("e", "SUMMARY:闰日周", "DTSTART;VALUE=DATE:20240229", "DTEND;VALUE=DATE:20240303", "RRULE:FREQ=YEARLY"),
		vevent("f", "SUMMARY:坏规则", "DTSTART;VALUE=DATE:20250101", "RRULE:FREQ=SOMETIMES"),
		vevent("g", "SUMMARY:发薪日", "DTSTART;VALUE=DATE:20250115", "RRULE:FREQ=MONTHLY"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != 1 || got[0].Name != "发薪日" {
		t.Fatalf("期望仅保留 发薪日，实际 %+v", got)
	}
	if r := got[0].Rule; r == nil || r.Type != "monthly_date" || r.Day != 15 {
		t.Errorf("发薪日规则不正确: %+v", r)
	}
}

func TestParseHolidayICS_OneOffExpanded(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:店庆", "DTSTART;VALUE=DATE:20250610", "DTEND;VALUE=DATE:20250613"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "10:00", "22:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	want := []string{"2025-06-10", "2025-06-11", "2025-06-12"}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d", len(want), len(got))
	}
	for i, d := range want {
		if r := got[i].Rule; r == nil || r.Type != "none" || *r.Date != d {
			t.Errorf("第 %d 条期望 none %s，实际 %+v", i, d, r)
		}
	}
}

func TestParseHolidayICS_TimedEvent(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:跨年夜", "DTSTART:20251231T200000", "DTEND:20260101T000000"),
		vevent("b", "SUMMARY:试吃", "DTSTART:20250701T150000Z", "DTEND:20250701T170000Z"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(got))
	}
	if got[0].StartTime != "20:00" || got[0].EndTime != "24:00" {
		t.Errorf("跨零点事件应结束于 24:00，实际 %s-%s", got[0].StartTime, got[0].EndTime)
	}
	if got[1].StartTime != "15:00" || got[1].EndTime != "17:00" || *got[1].Rule.Date != "2025-07-01" {
		t.Errorf("定时事件不正确: %+v", got[1])
	}
}

func TestParseHolidayICS_SkipsIncomplete(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "DTSTART;VALUE=DATE:20250101"),
		vevent("b", "SUMMARY:无日期"),
		vevent("c", "SUMMARY:无结束", "DTSTART:20250101T100000"),
		vevent("d", "SUMMARY:有效", "DTSTART;VALUE=DATE:20250501"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != 1 || got[0].Name != "有效" {
		t.Errorf("期望仅保留 有效，实际 %+v", got)
	}
}

func TestParseHolidayICS_LongEventCapped(t *testing.T) {
	ics := icsCalendar(
		vevent("a", "SUMMARY:夏季菜单", "DTSTART;VALUE=DATE:20250601", "DTEND;VALUE=DATE:20250901"),
	)

	got, err := ParseHolidayICS(strings.NewReader(ics), "09:00", "21:00")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(got) != icsMaxExpandDays {
		t.Errorf("期望最多展开 %d 天，实际 %d", icsMaxExpandDays, len(got))
	}
}

func TestParseHolidayICS_Invalid(t *testing.T) {
	_, err := ParseHolidayICS(strings.NewReader("not a calendar"), "09:00", "21:00")
	if !errors.Is(err, ErrICSInvalid) {
		t.Errorf("期望 ErrICSInvalid，实际: %v", err)
	}
}
