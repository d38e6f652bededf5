package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// TimetableHandler 课表导入 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// ImportICS 导入 ICS 课表
// POST /api/v1/timetables/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}
func (h *TimetableHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if rejectOversizedBody(c, err) {
		return
	}
	if err == nil {
		defer file.Close()
		resp, err := h.svc.ImportICS(c.Request.Context(), file, userID)
		if err != nil {
			handleTimetableError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	// 尝试 URL 方式
	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if rejectOversizedBody(c, err) {
			return
		}
		// 也可能是纯 form 提交
		req.URL = c.PostForm("url")
	}
	if req.URL == "" {
		response.BadRequest(c, 15000, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	resp, err := h.svc.ImportICSFromURL(c.Request.Context(), req.URL, userID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleTimetableError 统一课表导入错误映射
func handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTimetableICSFetchFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15001, "ICS URL 获取失败", err.Error())
	case errors.Is(err, service.ErrTimetableICSURLBlocked):
		response.BadRequest(c, 15002, "ICS URL 不允许指向内部网络")
	case errors.Is(err, service.ErrTimetableICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15006, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrTimetableICSEmpty):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15007, "ICS 文件中无有效课程", err.Error())
	default:
		response.InternalError(c)
	}
}
