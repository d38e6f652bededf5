package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// ShareHandler 课表分享 HTTP 处理器
type ShareHandler struct {
	shareSvc service.ShareService
}

// NewShareHandler 创建 ShareHandler
func NewShareHandler(shareSvc service.ShareService) *ShareHandler {
	return &ShareHandler{shareSvc: shareSvc}
}

// Get 分享状态
// GET /api/v1/share
func (h *ShareHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	share, err := h.shareSvc.Get(c.Request.Context(), userID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, share)
}

// Enable 开启分享
// POST /api/v1/share
func (h *ShareHandler) Enable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	share, err := h.shareSvc.Enable(c.Request.Context(), userID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, share)
}

// Disable 关闭分享
// DELETE /api/v1/share
func (h *ShareHandler) Disable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shareSvc.Disable(c.Request.Context(), userID); err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// Rotate 重新生成分享链接
// POST /api/v1/share/rotate
func (h *ShareHandler) Rotate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	share, err := h.shareSvc.Rotate(c.Request.Context(), userID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, share)
}

// PublicWeek 公开只读周课表（无需登录）
// GET /api/v1/public/share/:token/week?date=YYYY-MM-DD
func (h *ShareHandler) PublicWeek(c *gin.Context) {
	week, err := h.shareSvc.PublicWeek(c.Request.Context(), c.Param("token"), c.Query("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, week)
}
