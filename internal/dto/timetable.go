package dto

// ── ICS 导入 ──

// ImportICSRequest ICS 导入请求（用于 URL 方式）
type ImportICSRequest struct {
	URL string `json:"url" binding:"omitempty,url"`
}

// ImportICSResponse ICS 导入响应
type ImportICSResponse struct {
	ImportedCount int                   `json:"imported_count"`
	SkippedCount  int                   `json:"skipped_count"` // 与已有课程重复或时间不合法
	Events        []ImportedCourseEvent `json:"events"`
}

// ImportedCourseEvent 导入的课程事件
type ImportedCourseEvent struct {
	Name      string `json:"name"`
	Room      string `json:"room"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
