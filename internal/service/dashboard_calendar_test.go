package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Chacatphol/FlowO/internal/model"
)

func TestDashboardService_Calendar_Grid(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewDashboardService(env.repo, env.clock, env.schedule, env.logger)

	tests := []struct {
		month      string
		wantMonth  string
		first      string
		last       string
		wantLength int
		firstIn    bool
	}{
		// 2025-12-01 为周一，2025-12-31 为周三
		{"", "2025-12", "2025-12-01", "2026-01-04", 35, true},
		// 2026-02-01 为周日，2026-02-28 为周六
		{"2026-02", "2026-02", "2026-01-26", "2026-03-01", 35, false},
	}
	for _, tt := range tests {
		t.Run(tt.wantMonth, func(t *testing.T) {
			got, err := svc.Calendar(context.Background(), u.UserID, tt.month)
			if err != nil {
				t.Fatalf("Calendar 应成功: %v", err)
			}
			if got.Month != tt.wantMonth {
				t.Errorf("期望月份 %s，实际 %s", tt.wantMonth, got.Month)
			}
			if len(got.Days) != tt.wantLength {
				t.Fatalf("期望 %d 天，实际 %d", tt.wantLength, len(got.Days))
			}
			if got.Days[0].Date != tt.first || got.Days[len(got.Days)-1].Date != tt.last {
				t.Errorf("网格范围期望 %s ~ %s，实际 %s ~ %s", tt.first, tt.last, got.Days[0].Date, got.Days[len(got.Days)-1].Date)
			}
			if got.Days[0].InMonth != tt.firstIn {
				t.Errorf("首格 in_month 错误: %+v", got.Days[0])
			}
		})
	}
}

func TestDashboardService_Calendar_Markers(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewDashboardService(env.repo, env.clock, env.schedule, env.logger)

	at := func(day, hour int) *time.Time {
		return datePtr(time.Date(2025, 12, day, hour, 0, 0, 0, bangkok))
	}
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "report", TaskType: model.TaskTypeDeadline, StartAt: at(5, 9), DueAt: at(8, 17)})
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "party", TaskType: model.TaskTypeEvent, DueAt: at(5, 20)})

	got, err := svc.Calendar(context.Background(), u.UserID, "2025-12")
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}
	byDate := make(map[string][]string, len(got.Days))
	for _, d := range got.Days {
		byDate[d.Date] = d.Markers
	}

	want := map[string][]string{
		"2025-12-05": {MarkerDue, MarkerStart},
		"2025-12-06": {MarkerOngoing},
		"2025-12-07": {MarkerOngoing},
		"2025-12-08": {MarkerDue},
		"2025-12-09": {},
		"2025-12-04": {},
	}
	for date, markers := range want {
		if !reflect.DeepEqual(byDate[date], markers) {
			t.Errorf("%s 标记期望 %v，实际 %v", date, markers, byDate[date])
		}
	}
}

func TestDashboardService_Calendar_InvalidMonth(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewDashboardService(env.repo, env.clock, env.schedule, env.logger)

	for _, month := range []string{"2025-13", "2025/12", "december"} {
		if _, err := svc.Calendar(context.Background(), u.UserID, month); !errors.Is(err, ErrInvalidMonthParam) {
			t.Errorf("%q 期望 ErrInvalidMonthParam，实际 %v", month, err)
		}
	}
}

func TestDashboardService_Agenda(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewDashboardService(env.repo, env.clock, env.schedule, env.logger)

	at := func(day, hour, minute int) *time.Time {
		return datePtr(time.Date(2025, 12, day, hour, minute, 0, 0, bangkok))
	}
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "thesis", TaskType: model.TaskTypeDeadline, StartAt: at(1, 10, 0), DueAt: at(5, 0, 0)})
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "quiz", TaskType: model.TaskTypeDeadline, DueAt: at(3, 9, 0), DurationMinutes: 30})
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "meeting", TaskType: model.TaskTypeEvent, DueAt: at(3, 9, 40)})
	seedTask(t, env, model.Task{UserID: u.UserID, Title: "other day", TaskType: model.TaskTypeEvent, DueAt: at(4, 9, 0)})

	got, err := svc.Get(context.Background(), u.UserID, "2025-12-03")
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}

	type item struct {
		typ     string
		title   string
		minutes int
	}
	var items []item
	for _, a := range got.Agenda {
		it := item{typ: a.Type, minutes: a.Minutes}
		switch {
		case a.Task != nil:
			it.title = a.Task.Title
		case len(a.Tasks) > 0:
			it.title = a.Tasks[0].Title
		}
		items = append(items, it)
	}

	want := []item{
		{AgendaWorkable, "thesis", 0},
		{AgendaFree, "", 540}, // 00:00 ~ 09:00
		{AgendaTask, "quiz", 0},
		// 09:30 ~ 09:40 仅 10 分钟，不计空闲
		{AgendaTask, "meeting", 0},
		{AgendaFree, "", 800}, // 默认时长 60 分钟，10:40 ~ 24:00
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("日程期望 %+v，实际 %+v", want, items)
	}
}

func TestDashboardService_Agenda_EmptyDay(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewDashboardService(env.repo, env.clock, env.schedule, env.logger)

	got, err := svc.Get(context.Background(), u.UserID, "2025-12-10")
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if len(got.Agenda) != 1 || got.Agenda[0].Type != AgendaFree || got.Agenda[0].Minutes != 24*60 {
		t.Errorf("空白日期应整天空闲，实际 %+v", got.Agenda)
	}
}
