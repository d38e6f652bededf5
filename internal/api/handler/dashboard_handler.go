package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// DashboardHandler 首页汇总 HTTP 处理器
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Get 首页汇总
// GET /api/v1/dashboard?date=YYYY-MM-DD
func (h *DashboardHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.dashboardSvc.Get(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// Calendar 月历任务标记
// GET /api/v1/dashboard/calendar?month=YYYY-MM
func (h *DashboardHandler) Calendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.dashboardSvc.Calendar(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}
