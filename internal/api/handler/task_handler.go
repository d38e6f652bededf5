package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// TaskHandler 任务模块 HTTP 处理器
type TaskHandler struct {
	taskSvc service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// List 任务列表
// GET /api/v1/tasks?subject_id=&q=&archived=
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, err := h.taskSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Get 任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 13101, "任务不存在")
	if !ok {
		return
	}

	task, err := h.taskSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, task)
}

// Create 创建任务
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 13001, "参数校验失败", bindingDetails(err))
		return
	}

	task, err := h.taskSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.Created(c, task)
}

// Update 部分更新任务
// PATCH /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 13101, "任务不存在")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 13001, "参数校验失败", bindingDetails(err))
		return
	}

	task, err := h.taskSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, task)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, 13101, "任务不存在")
	if !ok {
		return
	}

	if err := h.taskSvc.Delete(c.Request.Context(), userID, id); err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, nil)
}

// BatchDelete 批量删除任务
// POST /api/v1/tasks/batch-delete
func (h *TaskHandler) BatchDelete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BatchDeleteTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	n, err := h.taskSvc.BatchDelete(c.Request.Context(), userID, req.IDs)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}

	response.OK(c, dto.BatchDeleteResponse{Deleted: n})
}

func (h *TaskHandler) handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 13101, "任务不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.BadRequest(c, 13102, "科目不存在")
	case errors.Is(err, service.ErrTaskTimeRange):
		response.BadRequest(c, 13103, "开始时间不能晚于截止时间")
	default:
		response.InternalError(c)
	}
}
