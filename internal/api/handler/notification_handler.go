package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// NotificationHandler 提醒消息 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 提醒列表
// GET /api/v1/notifications?page=&page_size=&unread_only=
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// MarkRead 标记已读
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 20101, "提醒不存在")
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.NotFound(c, 20101, "提醒不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
