package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCourses    = errors.New("本周暂无课程")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 表格按 星期 列 × 时间段 行呈现，单元格内容为已解析（含覆盖）的线上/线下状态。
type ExportService interface {
	// ExportWeekSchedule 导出 date 所在周的课表为 Excel
	ExportWeekSchedule(ctx context.Context, userID, date string) (*bytes.Buffer, string, error)
}

type exportService struct {
	schedule ScheduleService
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(sched ScheduleService, logger *zap.Logger) ExportService {
	return &exportService{schedule: sched, logger: logger}
}

var dayNames = map[int]string{1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六", 7: "周日"}

var statusLabels = map[string]string{
	string(schedule.StatusOnline): "线上",
	string(schedule.StatusOnsite): "线下",
}

// ═══════════════════════════════════════════════════════════
// ExportWeekSchedule — 导出周课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：课表 <周一日期> (单周/双周)
//   - 列头：时间 | 周一 ~ 周五（周末有课时追加）
//   - 行头：去重后的时间段，按开始时间排序
//   - 单元格：课程名 [线上/线下] 教室，同一格多门课换行
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportWeekSchedule(ctx context.Context, userID, date string) (*bytes.Buffer, string, error) {
	week, err := s.schedule.GetWeek(ctx, userID, date)
	if err != nil {
		return nil, "", err
	}

	// 1. 收集时间段与单元格内容
	type slotKey struct {
		startTime string
		endTime   string
	}
	cells := make(map[string][]string) // "dow:start:end" → lines
	slotSeen := make(map[slotKey]bool)
	var slots []slotKey

	for _, day := range week.Days {
		for _, c := range day.Courses {
			sk := slotKey{startTime: c.StartTime, endTime: c.EndTime}
			if !slotSeen[sk] {
				slotSeen[sk] = true
				slots = append(slots, sk)
			}
			key := fmt.Sprintf("%d:%s:%s", day.DayOfWeek, c.StartTime, c.EndTime)
			cells[key] = append(cells[key], courseCellText(&c))
		}
	}
	if len(slots) == 0 {
		return nil, "", ErrExportNoCourses
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].startTime != slots[j].startTime {
			return slots[i].startTime < slots[j].startTime
		}
		return slots[i].endTime < slots[j].endTime
	})

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 14)
	for i := range week.Days {
		col := colName(1 + i)
		f.SetColWidth(sheetName, col, col, 26)
	}

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// 标题行
	parityLabel := "单周"
	if week.Parity == string(schedule.ParityEven) {
		parityLabel = "双周"
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("课表 %s（%s）", week.WeekStart, parityLabel))
	f.MergeCell(sheetName, "A1", cell(colName(len(week.Days)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "时间")
	for i, day := range week.Days {
		f.SetCellValue(sheetName, cell(colName(1+i), row), fmt.Sprintf("%s %s", dayNames[day.DayOfWeek], day.Date[5:]))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(week.Days)), row), headerStyle)

	// 数据行
	row = 3
	for _, sl := range slots {
		f.SetCellValue(sheetName, cell("A", row), fmt.Sprintf("%s-%s", sl.startTime, sl.endTime))
		for i, day := range week.Days {
			key := fmt.Sprintf("%d:%s:%s", day.DayOfWeek, sl.startTime, sl.endTime)
			text := "-"
			if lines, ok := cells[key]; ok {
				text = strings.Join(lines, "\n")
			}
			f.SetCellValue(sheetName, cell(colName(1+i), row), text)
		}
		f.SetCellStyle(sheetName, cell("B", row), cell(colName(len(week.Days)), row), wrapStyle)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s.xlsx", week.WeekStart)
	return buf, filename, nil
}

// ── 辅助函数 ──

// courseCellText 课程名 [状态] 地点；线上课程不显示教室
func courseCellText(c *dto.ScheduledCourse) string {
	label, ok := statusLabels[c.Status]
	if !ok {
		label = "未知"
	}
	text := fmt.Sprintf("%s [%s]", c.Name, label)
	if c.Status == string(schedule.StatusOnsite) && c.Room != "" {
		text += " " + c.Room
	}
	return text
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
