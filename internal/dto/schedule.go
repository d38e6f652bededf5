package dto

// ── 课表视图 DTO ──

// DateQuery 以 date=YYYY-MM-DD 传入的查询参数，缺省为当天
type DateQuery struct {
	Date string `form:"date"`
}

// ToggleCourseRequest 切换课程线上/线下请求
type ToggleCourseRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD，所在周生效
}

// ScheduledCourse 某天的一节课及其解析后的状态
type ScheduledCourse struct {
	CourseResponse
	Date         string `json:"date"`
	Status       string `json:"status"` // online | onsite | unknown
	IsOverridden bool   `json:"is_overridden"`
}

// DayScheduleResponse 单日课表
type DayScheduleResponse struct {
	Date      string            `json:"date"`
	DayOfWeek int               `json:"day_of_week"`
	Parity    string            `json:"parity"`
	Courses   []ScheduledCourse `json:"courses"`
}

// WeekScheduleResponse 周课表（周一至周五）
type WeekScheduleResponse struct {
	WeekStart string                `json:"week_start"`
	Parity    string                `json:"parity"`
	Days      []DayScheduleResponse `json:"days"`
}

// ParityResponse 单双周查询响应
type ParityResponse struct {
	Date      string `json:"date"`
	WeekStart string `json:"week_start"`
	Parity    string `json:"parity"`
}
