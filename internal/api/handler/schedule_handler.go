package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/schedule"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// ScheduleHandler 课表视图 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// GetWeek 周课表
// GET /api/v1/schedule/week?date=YYYY-MM-DD
func (h *ScheduleHandler) GetWeek(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	week, err := h.scheduleSvc.GetWeek(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, week)
}

// GetDay 单日课表
// GET /api/v1/schedule/day?date=YYYY-MM-DD
func (h *ScheduleHandler) GetDay(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	day, err := h.scheduleSvc.GetDay(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, day)
}

// ToggleCourse 切换课程在指定周的线上/线下状态
// POST /api/v1/schedule/courses/:id/toggle
func (h *ScheduleHandler) ToggleCourse(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 17102, "课程不存在")
	if !ok {
		return
	}

	var req dto.ToggleCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "参数校验失败")
		return
	}

	course, err := h.scheduleSvc.ToggleCourse(c.Request.Context(), userID, id, req.Date)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, course)
}

// GetParity 单双周查询
// GET /api/v1/schedule/parity?date=YYYY-MM-DD
func (h *ScheduleHandler) GetParity(c *gin.Context) {
	parity, err := h.scheduleSvc.GetParity(c.Query("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, parity)
}

// handleScheduleError 课表视图错误映射，公开分享页复用
func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDateParam):
		response.BadRequest(c, 17101, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidMonthParam):
		response.BadRequest(c, 17106, "月份格式应为 YYYY-MM")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 17102, "课程不存在")
	case errors.Is(err, schedule.ErrStatusUnknown):
		response.Conflict(c, 17104, "当前状态未知，无法切换")
	case errors.Is(err, schedule.ErrInvalidCourse):
		response.Conflict(c, 17105, "课程数据无效")
	case errors.Is(err, service.ErrShareNotFound):
		response.NotFound(c, 18101, "分享链接不存在或已关闭")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11003, "用户不存在")
	default:
		response.InternalError(c)
	}
}
