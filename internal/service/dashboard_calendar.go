package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
)

// ErrInvalidMonthParam 月份参数格式错误
var ErrInvalidMonthParam = errors.New("月份格式应为 YYYY-MM")

const monthLayout = "2006-01"

// 月历标记，按优先级排列
const (
	MarkerDue     = "due"     // 当天截止
	MarkerStart   = "start"   // 当天开始
	MarkerOngoing = "ongoing" // 处于开始与截止之间
)

// 日程条目类型
const (
	AgendaWorkable = "workable"
	AgendaTask     = "task"
	AgendaFree     = "free"
)

const (
	defaultTaskDuration = time.Hour
	minFreeGap          = 15 * time.Minute
)

// Calendar 月历：month 所在月份按周一开始补齐整周，每天给出任务标记
func (s *dashboardService) Calendar(ctx context.Context, userID, month string) (*dto.CalendarResponse, error) {
	first, err := s.parseMonth(month)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.Task.List(ctx, userID, repository.TaskFilter{})
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	gridStart := first.AddDate(0, 0, -mondayOffset(first))
	last := first.AddDate(0, 1, -1)
	gridEnd := last.AddDate(0, 0, 6-mondayOffset(last))

	resp := &dto.CalendarResponse{Month: first.Format(monthLayout)}
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		resp.Days = append(resp.Days, dto.CalendarDay{
			Date:    day.Format(dateLayout),
			InMonth: day.Month() == first.Month(),
			Markers: s.dayMarkers(tasks, day),
		})
	}
	return resp, nil
}

// parseMonth 解析 YYYY-MM，空串表示本月；返回当月 1 日零点（课表时区）
func (s *dashboardService) parseMonth(month string) (time.Time, error) {
	if month == "" {
		t := s.clock.Today()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.clock.Location), nil
	}
	t, err := time.ParseInLocation(monthLayout, month, s.clock.Location)
	if err != nil {
		return time.Time{}, ErrInvalidMonthParam
	}
	return t, nil
}

// mondayOffset 距本周周一的天数
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// dayMarkers 每个任务至多贡献一个标记：截止优先于开始，开始优先于进行中
func (s *dashboardService) dayMarkers(tasks []model.Task, day time.Time) []string {
	var due, start, ongoing bool
	for i := range tasks {
		t := &tasks[i]
		isDue := t.DueAt != nil && s.clock.SameDay(*t.DueAt, day)
		isStart := t.StartAt != nil && s.clock.SameDay(*t.StartAt, day)
		switch {
		case isDue:
			due = true
		case isStart:
			start = true
		case s.spansDay(t, day):
			ongoing = true
		}
	}

	markers := make([]string, 0, 3)
	if due {
		markers = append(markers, MarkerDue)
	}
	if start {
		markers = append(markers, MarkerStart)
	}
	if ongoing {
		markers = append(markers, MarkerOngoing)
	}
	return markers
}

// spansDay 开始与截止都不在 day 当天，且 day 零点落在两者之间
func (s *dashboardService) spansDay(t *model.Task, day time.Time) bool {
	if t.StartAt == nil || t.DueAt == nil {
		return false
	}
	if s.clock.SameDay(*t.StartAt, day) || s.clock.SameDay(*t.DueAt, day) {
		return false
	}
	return day.After(*t.StartAt) && day.Before(*t.DueAt)
}

// buildAgenda 当天日程：进行中的截止任务置顶，其后按截止时间排列当天任务并插入空闲时段
func (s *dashboardService) buildAgenda(tasks []model.Task, day, now time.Time) []dto.AgendaItem {
	items := make([]dto.AgendaItem, 0)

	var workable []dto.TaskResponse
	var timed []model.Task
	for i := range tasks {
		t := &tasks[i]
		if t.TaskType == model.TaskTypeDeadline && s.spansDay(t, day) {
			workable = append(workable, toTaskResponse(t, now))
		}
		if t.DueAt != nil && s.clock.SameDay(*t.DueAt, day) {
			timed = append(timed, *t)
		}
	}
	if len(workable) > 0 {
		items = append(items, dto.AgendaItem{Type: AgendaWorkable, Tasks: workable})
	}

	sort.SliceStable(timed, func(i, j int) bool { return timed[i].DueAt.Before(*timed[j].DueAt) })

	cursor := day
	for i := range timed {
		t := &timed[i]
		begin := *t.DueAt
		if gap := freeGap(cursor, begin); gap != nil {
			items = append(items, *gap)
		}
		resp := toTaskResponse(t, now)
		items = append(items, dto.AgendaItem{Type: AgendaTask, Task: &resp})

		duration := defaultTaskDuration
		if t.DurationMinutes > 0 {
			duration = time.Duration(t.DurationMinutes) * time.Minute
		}
		if end := begin.Add(duration); end.After(cursor) {
			cursor = end
		}
	}
	if gap := freeGap(cursor, day.AddDate(0, 0, 1)); gap != nil {
		items = append(items, *gap)
	}
	return items
}

// freeGap 超过 15 分钟的空闲返回 free 条目
func freeGap(from, to time.Time) *dto.AgendaItem {
	gap := to.Sub(from)
	if gap <= minFreeGap {
		return nil
	}
	start, end := from, to
	return &dto.AgendaItem{Type: AgendaFree, Start: &start, End: &end, Minutes: int(gap / time.Minute)}
}
