package dto

import (
	"encoding/json"
	"time"
)

// ── 数据备份 / 导入 DTO ──

// BackupDocument 用户数据备份文档（字段名沿用旧版客户端的 JSON 格式）
type BackupDocument struct {
	Subjects          []json.RawMessage `json:"subjects"`
	Tasks             []json.RawMessage `json:"tasks"`
	Courses           []json.RawMessage `json:"courses"`
	ScheduleOverrides map[string]string `json:"scheduleOverrides"`
	LastLogin         string            `json:"lastLogin,omitempty"`
	LoginStreak       int               `json:"loginStreak"`
}

// BackupSubject 备份中的科目
type BackupSubject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// BackupTask 备份中的任务
type BackupTask struct {
	ID              string        `json:"id"`
	SubjectID       string        `json:"subjectId,omitempty"`
	Title           string        `json:"title"`
	Detail          string        `json:"detail"`
	StartAt         *BackupTime   `json:"startAt,omitempty"`
	DueAt           *BackupTime   `json:"dueAt,omitempty"`
	TaskType        string        `json:"taskType"`
	Link            string        `json:"link"`
	Status          string        `json:"status"`
	Category        string        `json:"category"`
	Progress        int           `json:"progress"`
	DurationMinutes int           `json:"duration"`
	Reminders       []ReminderDTO `json:"reminders"`
	CreatedAt       *BackupTime   `json:"createdAt,omitempty"`
	UpdatedAt       *BackupTime   `json:"updatedAt,omitempty"`
}

// BackupCourse 备份中的课程
type BackupCourse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	DayOfWeek     int    `json:"dayOfWeek"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	ScheduleType  string `json:"scheduleType"`
	Room          string `json:"room"`
	SecondaryRoom string `json:"pRoom"`
	Instructor    string `json:"teacher"`
	Color         string `json:"color"`
}

// ImportResult 导入统计
type ImportResult struct {
	Subjects  int `json:"subjects"`
	Tasks     int `json:"tasks"`
	Courses   int `json:"courses"`
	Overrides int `json:"overrides"`
	Skipped   int `json:"skipped"`
}

// BackupTime 备份中的时间字段。旧版客户端混用三种写法：
// 毫秒时间戳、RFC3339 字符串、无时区的 datetime-local 字符串（"2006-01-02T15:04"）
type BackupTime struct {
	raw json.RawMessage
}

var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02"}

// NewBackupTime 以 RFC3339 写出
func NewBackupTime(t time.Time) *BackupTime {
	b, _ := json.Marshal(t.UTC().Format(time.RFC3339))
	return &BackupTime{raw: b}
}

// UnmarshalJSON 保留原始值，解析延后到 In
func (t *BackupTime) UnmarshalJSON(b []byte) error {
	t.raw = append(t.raw[:0], b...)
	return nil
}

// MarshalJSON 原样写出
func (t BackupTime) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// In 解析为时间；无时区写法按 loc 解释。值为 null 或空串时返回 (nil, true)，无法识别时 ok=false
func (t *BackupTime) In(loc *time.Location) (*time.Time, bool) {
	if t == nil || len(t.raw) == 0 || string(t.raw) == "null" {
		return nil, true
	}

	var ms int64
	if err := json.Unmarshal(t.raw, &ms); err == nil {
		v := time.UnixMilli(ms).UTC()
		return &v, true
	}

	var s string
	if err := json.Unmarshal(t.raw, &s); err != nil {
		return nil, false
	}
	if s == "" {
		return nil, true
	}
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		return &v, true
	}
	for _, layout := range localLayouts {
		if v, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &v, true
		}
	}
	return nil, false
}
