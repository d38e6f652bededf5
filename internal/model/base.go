package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── PostgreSQL JSONB 自定义类型 ──

// ReminderList 对应 tasks.reminders JSONB 列，实现 GORM Scanner/Valuer 接口。
type ReminderList []Reminder

// Scan 将 PostgreSQL 返回的 JSON 文本解析为 []Reminder。
func (l *ReminderList) Scan(src interface{}) error {
	if src == nil {
		*l = ReminderList{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("ReminderList.Scan: unsupported type %T", src)
	}
	var out ReminderList
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("ReminderList.Scan: %w", err)
	}
	if out == nil {
		out = ReminderList{}
	}
	*l = out
	return nil
}

// Value 将 []Reminder 序列化为 JSON 文本，nil 存为 []。
func (l ReminderList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Reminder(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}
