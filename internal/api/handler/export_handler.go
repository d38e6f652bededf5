package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWeek 导出周课表
// GET /api/v1/export/schedule?date=YYYY-MM-DD
func (h *ExportHandler) ExportWeek(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportWeekSchedule(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDateParam):
		response.BadRequest(c, 16001, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrExportNoCourses):
		response.NotFound(c, 16101, "本周暂无课程")
	default:
		response.InternalError(c)
	}
}
