package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// SubjectHandler 科目模块 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// List 科目列表
// GET /api/v1/subjects
func (h *SubjectHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.subjectSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create 创建科目
// POST /api/v1/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 12001, "参数校验失败", bindingDetails(err))
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.Created(c, subject)
}

// Update 更新科目
// PUT /api/v1/subjects/:id
func (h *SubjectHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 12101, "科目不存在")
	if !ok {
		return
	}

	var req dto.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 12001, "参数校验失败", bindingDetails(err))
		return
	}

	subject, err := h.subjectSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// Delete 删除科目（连同其下任务）
// DELETE /api/v1/subjects/:id
func (h *SubjectHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 12101, "科目不存在")
	if !ok {
		return
	}

	if err := h.subjectSvc.Delete(c.Request.Context(), userID, id); err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 12101, "科目不存在")
	default:
		response.InternalError(c)
	}
}
