package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/schedule"
	"github.com/Chacatphol/FlowO/internal/service"
	pkgerrors "github.com/Chacatphol/FlowO/pkg/errors"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// List 课程列表
// GET /api/v1/courses
func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.courseSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Get 课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 14101, "课程不存在")
	if !ok {
		return
	}

	course, err := h.courseSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Create 创建课程
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 14001, "参数校验失败", bindingDetails(err))
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// Update 更新课程（乐观锁）
// PUT /api/v1/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 14101, "课程不存在")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 14001, "参数校验失败", bindingDetails(err))
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Delete 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 14101, "课程不存在")
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), userID, id); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 14101, "课程不存在")
	case errors.Is(err, schedule.ErrUnknownMode):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14102, "未知的上课方式", err.Error())
	case errors.Is(err, schedule.ErrInvalidCourse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14103, "课程数据无效", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14104, "课程已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
