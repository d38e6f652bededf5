package model

import "time"

// 任务状态
const (
	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

// 任务类型
const (
	TaskTypeDeadline = "deadline"
	TaskTypeEvent    = "event"
)

// 任务分类
const (
	TaskCategoryStudy    = "study"
	TaskCategoryWork     = "work"
	TaskCategoryPersonal = "personal"
)

// 提醒单位
const (
	ReminderMinutes = "minutes"
	ReminderHours   = "hours"
	ReminderDays    = "days"
)

// ArchiveAfter 已完成任务在最后一次更新后经过该时长即视为归档
const ArchiveAfter = time.Hour

// Reminder 截止前提醒：在 due_at 之前 Amount 个 Type 单位触发
type Reminder struct {
	Type   string `json:"type"` // minutes | hours | days
	Amount int    `json:"amount"`
}

// Offset 提醒相对截止时间的提前量，非法提醒返回 false
func (r Reminder) Offset() (time.Duration, bool) {
	if r.Amount <= 0 {
		return 0, false
	}
	switch r.Type {
	case ReminderMinutes:
		return time.Duration(r.Amount) * time.Minute, true
	case ReminderHours:
		return time.Duration(r.Amount) * time.Hour, true
	case ReminderDays:
		return time.Duration(r.Amount) * 24 * time.Hour, true
	}
	return 0, false
}

// Task 任务表 — 对应 tasks
type Task struct {
	TaskID          string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	UserID          string       `gorm:"type:uuid;not null"                             json:"-"`
	SubjectID       *string      `gorm:"type:uuid"                                      json:"subject_id,omitempty"`
	Title           string       `gorm:"type:varchar(200);not null"                     json:"title"`
	Detail          string       `gorm:"type:text;not null"                             json:"detail"`
	StartAt         *time.Time   `gorm:""                                               json:"start_at,omitempty"`
	DueAt           *time.Time   `gorm:""                                               json:"due_at,omitempty"`
	TaskType        string       `gorm:"type:varchar(20);not null;default:'deadline'"   json:"task_type"`
	Link            string       `gorm:"type:text;not null"                             json:"link"`
	Status          string       `gorm:"type:varchar(20);not null;default:'todo'"       json:"status"`
	Category        string       `gorm:"type:varchar(20);not null;default:'study'"      json:"category"`
	Progress        int          `gorm:"type:smallint;not null;default:0"               json:"progress"`
	DurationMinutes int          `gorm:"not null;default:0"                             json:"duration_minutes"`
	Reminders       ReminderList `gorm:"type:jsonb;not null"                            json:"reminders"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// IsArchived 已完成且最后更新距今不少于 ArchiveAfter
func (t *Task) IsArchived(now time.Time) bool {
	return t.Status == TaskStatusDone && now.Sub(t.UpdatedAt) >= ArchiveAfter
}
