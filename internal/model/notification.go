package model

import "time"

// Notification 任务截止提醒消息表 — 对应 notifications
// (task_id, fire_at) 唯一，保证同一提醒只生成一次
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"-"`
	TaskID         string    `gorm:"type:uuid;not null"                             json:"task_id"`
	Title          string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string    `gorm:"type:text;not null"                             json:"content"`
	FireAt         time.Time `gorm:"not null"                                       json:"fire_at"`
	IsRead         bool      `gorm:"not null;default:false"                         json:"is_read"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
