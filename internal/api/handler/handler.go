package handler

import "github.com/Chacatphol/FlowO/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Subject      *SubjectHandler
	Task         *TaskHandler
	Course       *CourseHandler
	Schedule     *ScheduleHandler
	Share        *ShareHandler
	Dashboard    *DashboardHandler
	Data         *DataHandler
	Export       *ExportHandler
	Timetable    *TimetableHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cookie *CookieConfig) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, cookie),
		Subject:      NewSubjectHandler(svc.Subject),
		Task:         NewTaskHandler(svc.Task),
		Course:       NewCourseHandler(svc.Course),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Share:        NewShareHandler(svc.Share),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
		Data:         NewDataHandler(svc.Data),
		Export:       NewExportHandler(svc.Export),
		Timetable:    NewTimetableHandler(svc.Timetable),
		Notification: NewNotificationHandler(svc.Notification),
	}
}
