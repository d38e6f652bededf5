package dto

import "time"

// ── 提醒消息 DTO ──

// NotificationListRequest 提醒列表查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 提醒响应
type NotificationResponse struct {
	ID      string    `json:"id"`
	TaskID  string    `json:"task_id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	FireAt  time.Time `json:"fire_at"`
	IsRead  bool      `json:"is_read"`
}
