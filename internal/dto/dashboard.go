package dto

import "time"

// ── 仪表盘 DTO ──

// DashboardResponse 仪表盘汇总
type DashboardResponse struct {
	Date          string            `json:"date"`
	TodayTasks    []TaskResponse    `json:"today_tasks"`
	ProgressToday int               `json:"progress_today"`
	LazyScore     int               `json:"lazy_score"`
	DoneCount     int               `json:"done_count"`
	DueSoon       []TaskResponse    `json:"due_soon"`
	LoginStreak   int               `json:"login_streak"`
	TodayCourses  []ScheduledCourse `json:"today_courses"`
	Agenda        []AgendaItem      `json:"agenda"`
}

// AgendaItem 日程条目
//   - workable: 跨越当天的进行中截止任务（开始与截止都不在当天）
//   - task: 当天到期的任务，占用 [due_at, due_at+时长)
//   - free: 两个任务之间超过 15 分钟的空闲
type AgendaItem struct {
	Type    string         `json:"type"`
	Tasks   []TaskResponse `json:"tasks,omitempty"`
	Task    *TaskResponse  `json:"task,omitempty"`
	Start   *time.Time     `json:"start,omitempty"`
	End     *time.Time     `json:"end,omitempty"`
	Minutes int            `json:"minutes,omitempty"`
}

// CalendarResponse 月历
type CalendarResponse struct {
	Month string        `json:"month"` // YYYY-MM
	Days  []CalendarDay `json:"days"`  // 周一开始的完整周，含前后月补位
}

// CalendarDay 月历中的一天
type CalendarDay struct {
	Date    string   `json:"date"`
	InMonth bool     `json:"in_month"`
	Markers []string `json:"markers"` // due > start > ongoing
}
