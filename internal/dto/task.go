package dto

import "time"

// ── 任务模块 DTO ──

// ReminderDTO 截止前提醒
type ReminderDTO struct {
	Type   string `json:"type"   binding:"required,oneof=minutes hours days"`
	Amount int    `json:"amount" binding:"required,min=1"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	SubjectID       *string       `json:"subject_id"       binding:"omitempty,uuid"`
	Title           string        `json:"title"            binding:"required,notblank,max=200"`
	Detail          string        `json:"detail"`
	StartAt         *time.Time    `json:"start_at"`
	DueAt           *time.Time    `json:"due_at"`
	TaskType        string        `json:"task_type"        binding:"omitempty,oneof=deadline event"`
	Link            string        `json:"link"             binding:"omitempty,max=2000"`
	Status          string        `json:"status"           binding:"omitempty,oneof=todo doing done"`
	Category        string        `json:"category"         binding:"omitempty,oneof=study work personal"`
	Progress        int           `json:"progress"         binding:"min=0,max=100"`
	DurationMinutes int           `json:"duration_minutes" binding:"min=0"`
	Reminders       []ReminderDTO `json:"reminders"        binding:"omitempty,dive"`
}

// UpdateTaskRequest 更新任务请求（字段为 nil 表示不修改）
type UpdateTaskRequest struct {
	SubjectID       *string        `json:"subject_id"       binding:"omitempty,uuid"` // 空串表示取消关联科目
	Title           *string        `json:"title"            binding:"omitnil,notblank,max=200"`
	Detail          *string        `json:"detail"`
	StartAt         *time.Time     `json:"start_at"`
	DueAt           *time.Time     `json:"due_at"`
	TaskType        *string        `json:"task_type"        binding:"omitempty,oneof=deadline event"`
	Link            *string        `json:"link"             binding:"omitempty,max=2000"`
	Status          *string        `json:"status"           binding:"omitempty,oneof=todo doing done"`
	Category        *string        `json:"category"         binding:"omitempty,oneof=study work personal"`
	Progress        *int           `json:"progress"         binding:"omitempty,min=0,max=100"`
	DurationMinutes *int           `json:"duration_minutes" binding:"omitempty,min=0"`
	Reminders       *[]ReminderDTO `json:"reminders"        binding:"omitempty,dive"`
}

// TaskListRequest 任务列表查询参数
type TaskListRequest struct {
	SubjectID string `form:"subject_id"`
	Query     string `form:"q"`
	Archived  bool   `form:"archived"` // true 时仅返回已归档任务
}

// BatchDeleteTasksRequest 批量删除任务请求
type BatchDeleteTasksRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}

// BatchDeleteResponse 批量删除响应
type BatchDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID              string        `json:"id"`
	SubjectID       *string       `json:"subject_id,omitempty"`
	Title           string        `json:"title"`
	Detail          string        `json:"detail"`
	StartAt         *time.Time    `json:"start_at,omitempty"`
	DueAt           *time.Time    `json:"due_at,omitempty"`
	TaskType        string        `json:"task_type"`
	Link            string        `json:"link"`
	Status          string        `json:"status"`
	Category        string        `json:"category"`
	Progress        int           `json:"progress"`
	DurationMinutes int           `json:"duration_minutes"`
	Reminders       []ReminderDTO `json:"reminders"`
	Archived        bool          `json:"archived"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
