package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// DataHandler 数据备份 HTTP 处理器
type DataHandler struct {
	dataSvc service.DataService
}

// NewDataHandler 创建 DataHandler
func NewDataHandler(dataSvc service.DataService) *DataHandler {
	return &DataHandler{dataSvc: dataSvc}
}

// Export 导出全部数据为 JSON 备份（下载）
// GET /api/v1/data/export
func (h *DataHandler) Export(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	doc, err := h.dataSvc.Export(c.Request.Context(), userID)
	if err != nil {
		h.handleDataError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "flowo-backup.json"))
	c.JSON(http.StatusOK, doc)
}

// Import 以备份文档替换全部数据
// POST /api/v1/data/import
func (h *DataHandler) Import(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var doc dto.BackupDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.BadRequest(c, 19001, "备份文件格式错误")
		return
	}

	result, err := h.dataSvc.Import(c.Request.Context(), userID, &doc)
	if err != nil {
		h.handleDataError(c, err)
		return
	}

	response.OK(c, result)
}

// Clear 清空全部数据
// DELETE /api/v1/data
func (h *DataHandler) Clear(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.dataSvc.Clear(c.Request.Context(), userID); err != nil {
		h.handleDataError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *DataHandler) handleDataError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 19101, "用户不存在")
	default:
		response.InternalError(c)
	}
}
