package model

import (
	"time"

	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ScheduleOverride 课程周状态覆盖表 — 对应 schedule_overrides
// 主键 (course_id, week_start)，week_start 恒为周一
type ScheduleOverride struct {
	CourseID  string    `gorm:"type:uuid;primaryKey"         json:"course_id"`
	WeekStart time.Time `gorm:"type:date;primaryKey"         json:"week_start"`
	UserID    string    `gorm:"type:uuid;not null"           json:"-"`
	Status    string    `gorm:"type:varchar(10);not null"    json:"status"`
	BaseModel
}

// TableName 指定表名
func (ScheduleOverride) TableName() string { return "schedule_overrides" }

// Key 覆盖键
func (o *ScheduleOverride) Key() schedule.OverrideKey {
	return schedule.OverrideKey{CourseID: o.CourseID, WeekStart: o.WeekStart.Format("2006-01-02")}
}

// OverridesFromRows 将覆盖记录转换为解析器使用的覆盖集合
func OverridesFromRows(rows []ScheduleOverride) schedule.Overrides {
	out := make(schedule.Overrides, len(rows))
	for i := range rows {
		out[rows[i].Key()] = schedule.Status(rows[i].Status)
	}
	return out
}
