package model

import "github.com/Chacatphol/FlowO/internal/schedule"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	UserID        string `gorm:"type:uuid;not null"                             json:"-"`
	Name          string `gorm:"type:varchar(200);not null"                     json:"name"`
	Code          string `gorm:"type:varchar(50);not null"                      json:"code"`
	DayOfWeek     int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1=周一 … 7=周日
	StartTime     string `gorm:"type:varchar(5);not null"                       json:"start_time"`  // HH:MM
	EndTime       string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	ScheduleType  string `gorm:"type:varchar(20);not null"                      json:"schedule_type"` // odd-onsite | even-onsite | online-always | onsite-always
	Room          string `gorm:"type:varchar(100);not null"                     json:"room"`
	SecondaryRoom string `gorm:"type:varchar(100);not null"                     json:"secondary_room"`
	Instructor    string `gorm:"type:varchar(100);not null"                     json:"instructor"`
	Color         string `gorm:"type:varchar(20);not null"                      json:"color"`
	VersionedModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Schedule 转换为状态解析所需的最小课程描述
func (c *Course) Schedule() schedule.Course {
	return schedule.Course{
		ID:        c.CourseID,
		DayOfWeek: c.DayOfWeek,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Mode:      schedule.Mode(c.ScheduleType),
	}
}
