package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"daypart-hub/config"
	"daypart-hub/internal/daypart"
	"daypart-hub/internal/dto"
	"daypart-hub/internal/recurrence"
	"daypart-hub/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoDayparts   = errors.New("该节点没有生效的时段定义")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 有效配置导出为 Excel (.xlsx)，每个排期一行，标注来源层级
//   - 活动/节假日排期按重复规则展开为 iCalendar (.ics)，供外部日历订阅
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportConfig 导出节点有效配置为 Excel
	ExportConfig(ctx context.Context, nodeID string) (*bytes.Buffer, string, error)
	// ExportEvents 导出活动/节假日的后续发生为 ICS
	ExportEvents(ctx context.Context, nodeID string, query *dto.ExportEventsQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	cfg    *config.ResolverConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, cfg *config.ResolverConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// loadConfig 加载节点名与有效配置
func (s *exportService) loadConfig(ctx context.Context, nodeID string) (string, daypart.EffectiveConfig, error) {
	snap, err := loadSnapshot(ctx, s.repo, nodeID)
	if err != nil {
		return "", daypart.EffectiveConfig{}, err
	}
	chain, err := snap.resolver.Ancestors(nodeID)
	if err != nil {
		return "", daypart.EffectiveConfig{}, err
	}
	cfg, err := snap.resolver.EffectiveConfig(nodeID)
	if err != nil {
		return "", daypart.EffectiveConfig{}, err
	}
	if len(cfg.Definitions) == 0 {
		return "", daypart.EffectiveConfig{}, ErrExportNoDayparts
	}
	return chain[0].Name, cfg, nil
}

// ═══════════════════════════════════════════════════════════
// ExportConfig 导出有效配置为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "有效配置"，第 1 行标题，第 2 行表头
//   - 列：时段 | 显示名称 | 来源 | 类型 | 星期 | 时间 | 规则 | 名称 | 优先级
//   - 继承来的定义在"来源"列标注归属节点
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportConfig(ctx context.Context, nodeID string) (*bytes.Buffer, string, error) {
	nodeName, cfg, err := s.loadConfig(ctx, nodeID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "有效配置"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	widths := []float64{12, 16, 14, 12, 22, 14, 28, 16, 8}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 时段配置（%s）", nodeName, recurrence.FormatDate(s.now())))
	f.MergeCell(sheetName, "A1", cell(colName(len(widths)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"时段", "显示名称", "来源", "类型", "星期", "时间", "规则", "名称", "优先级"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}

	// 数据行
	row := 3
	for _, d := range cfg.Definitions {
		source := "本节点"
		if d.OwnerNodeID != nodeID {
			source = "继承 " + d.OwnerNodeID
		}
		schedules := cfg.SchedulesByDefinition[d.ID]
		if len(schedules) == 0 {
			f.SetCellValue(sheetName, cell("A", row), d.Name)
			f.SetCellValue(sheetName, cell("B", row), d.DisplayLabel)
			f.SetCellValue(sheetName, cell("C", row), source)
			f.SetCellValue(sheetName, cell("D", row), "-")
			row++
			continue
		}
		for _, sc := range schedules {
			f.SetCellValue(sheetName, cell("A", row), d.Name)
			f.SetCellValue(sheetName, cell("B", row), d.DisplayLabel)
			f.SetCellValue(sheetName, cell("C", row), source)
			f.SetCellValue(sheetName, cell("D", row), kindLabel(sc.Kind))
			f.SetCellValue(sheetName, cell("E", row), weekdayLabel(sc.Days))
			f.SetCellValue(sheetName, cell("F", row), fmt.Sprintf("%s-%s", sc.Start, sc.End))
			f.SetCellValue(sheetName, cell("G", row), describeRule(sc.Rule))
			f.SetCellValue(sheetName, cell("H", row), sc.Name)
			f.SetCellValue(sheetName, cell("I", row), sc.Priority)
			row++
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("时段配置_%s.xlsx", nodeName)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportEvents 导出活动/节假日为 ICS
// ═══════════════════════════════════════════════════════════
//
// 每个排期取 from 起的 count 次发生，每次发生一个 VEVENT；
// 区间规则用 RRULE:FREQ=DAILY;COUNT=n 表示逐日重复的时间窗。
// 时间为浮动时间（不带时区），与门店本地时间一致。

func (s *exportService) ExportEvents(ctx context.Context, nodeID string, query *dto.ExportEventsQuery) (*bytes.Buffer, string, error) {
	from := recurrence.Truncate(s.now())
	if query.From != "" {
		t, err := recurrence.ParseDate(query.From)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidDate, query.From)
		}
		from = t
	}
	count := query.Count
	if count <= 0 {
		count = s.cfg.ExportOccurrences
	}
	if count > s.cfg.MaxOccurrences {
		count = s.cfg.MaxOccurrences
	}

	nodeName, cfg, err := s.loadConfig(ctx, nodeID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//daypart-hub//dayparts//EN")
	cal.SetXWRCalName(nodeName + " 活动/节假日")

	stamp := s.now().UTC()
	var events int
	for _, d := range cfg.Definitions {
		for _, sc := range cfg.SchedulesByDefinition[d.ID] {
			if sc.Kind != daypart.KindEventHoliday || sc.Rule == nil {
				continue
			}
			spans, err := recurrence.Spans(*sc.Rule, from, count)
			if err != nil {
				s.logger.Warn("跳过无法展开的排期", zap.String("schedule_id", sc.ID), zap.Error(err))
				continue
			}
			for _, sp := range spans {
				addEvent(cal, d, sc, sp, stamp)
				events++
			}
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())

	s.logger.Info("活动日历已导出", zap.String("node_id", nodeID), zap.Int("events", events))
	filename := fmt.Sprintf("活动日历_%s.ics", nodeName)
	return buf, filename, nil
}

const icsFloatingLayout = "20060102T150405"

func addEvent(cal *ics.Calendar, d daypart.Definition, sc daypart.Schedule, sp recurrence.Span, stamp time.Time) {
	uid := fmt.Sprintf("%s-%s@daypart-hub", sc.ID, recurrence.FormatDate(sp.Start))
	evt := cal.AddEvent(uid)
	evt.SetDtStampTime(stamp)

	summary := d.DisplayLabel
	if summary == "" {
		summary = d.Name
	}
	if sc.Name != "" {
		summary += " · " + sc.Name
	}
	evt.SetSummary(summary)
	evt.SetDescription(describeRule(sc.Rule))

	start := sp.Start.Add(time.Duration(sc.Start) * time.Minute)
	end := sp.Start.Add(time.Duration(sc.End) * time.Minute)
	if sc.End <= sc.Start {
		// 跨午夜
		end = end.AddDate(0, 0, 1)
	}
	evt.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsFloatingLayout))
	evt.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsFloatingLayout))

	if n := int(sp.End.Sub(sp.Start).Hours()/24) + 1; n > 1 {
		evt.AddRrule(fmt.Sprintf("FREQ=DAILY;COUNT=%d", n))
	}
}

// ── 辅助函数 ──

var weekdayNames = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

var positionNames = map[recurrence.Position]string{
	recurrence.PositionFirst:  "第一个",
	recurrence.PositionSecond: "第二个",
	recurrence.PositionThird:  "第三个",
	recurrence.PositionFourth: "第四个",
	recurrence.PositionLast:   "最后一个",
}

func kindLabel(k daypart.Kind) string {
	if k == daypart.KindEventHoliday {
		return "活动/节假日"
	}
	return "常规"
}

func weekdayLabel(days daypart.DaySet) string {
	if days.IsEmpty() {
		return "-"
	}
	names := make([]string, 0, 7)
	for _, d := range days.Days() {
		names = append(names, weekdayNames[d])
	}
	return strings.Join(names, "、")
}

// describeRule 重复规则的可读描述
func describeRule(r *recurrence.Rule) string {
	if r == nil {
		return "-"
	}
	switch r.Kind {
	case recurrence.KindNone:
		if r.Date != nil {
			return recurrence.FormatDate(*r.Date)
		}
	case recurrence.KindAnnualDate:
		return fmt.Sprintf("每年 %d月%d日", r.Month, r.Day)
	case recurrence.KindMonthlyDate:
		return fmt.Sprintf("每月 %d日", r.Day)
	case recurrence.KindAnnualRelative:
		if r.Weekday != nil {
			return fmt.Sprintf("每年 %d月 %s%s", r.Month, positionNames[r.Position], weekdayNames[*r.Weekday])
		}
	case recurrence.KindAnnualDateRange:
		if r.StartDate != nil && r.EndDate != nil {
			return fmt.Sprintf("每年 %s 至 %s", r.StartDate.Format("01-02"), r.EndDate.Format("01-02"))
		}
	}
	return string(r.Kind)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
