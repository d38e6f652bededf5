package dto

// ── 课程模块 DTO ──

// CourseRequest 创建课程请求
type CourseRequest struct {
	Name          string `json:"name"           binding:"required,notblank,max=200"`
	Code          string `json:"code"           binding:"omitempty,max=50"`
	DayOfWeek     int    `json:"day_of_week"    binding:"required,min=1,max=7"`
	StartTime     string `json:"start_time"     binding:"required,hhmm"`
	EndTime       string `json:"end_time"       binding:"required,hhmm"`
	ScheduleType  string `json:"schedule_type"  binding:"required"`
	Room          string `json:"room"           binding:"omitempty,max=100"`
	SecondaryRoom string `json:"secondary_room" binding:"omitempty,max=100"`
	Instructor    string `json:"instructor"     binding:"omitempty,max=100"`
	Color         string `json:"color"          binding:"omitempty,max=20"`
}

// UpdateCourseRequest 更新课程请求，version 用于乐观锁
type UpdateCourseRequest struct {
	CourseRequest
	Version int `json:"version" binding:"required,min=1"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	DayOfWeek     int    `json:"day_of_week"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	ScheduleType  string `json:"schedule_type"`
	Room          string `json:"room"`
	SecondaryRoom string `json:"secondary_room"`
	Instructor    string `json:"instructor"`
	Color         string `json:"color"`
	Version       int    `json:"version"`
}
