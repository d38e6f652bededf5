package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
)

// ── 任务模块业务错误 ──

var (
	ErrTaskNotFound  = errors.New("任务不存在")
	ErrTaskTimeRange = errors.New("开始时间不能晚于截止时间")
)

// TaskService 任务业务接口
type TaskService interface {
	// List 默认返回未归档任务（未完成在前，有截止时间的按截止时间升序）；archived=true 时返回归档任务
	List(ctx context.Context, userID string, req *dto.TaskListRequest) ([]dto.TaskResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.TaskResponse, error)
	Create(ctx context.Context, userID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, userID, id string) error
	BatchDelete(ctx context.Context, userID string, ids []string) (int64, error)
}

type taskService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, clk Clock, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, clock: clk, logger: logger}
}

func (s *taskService) List(ctx context.Context, userID string, req *dto.TaskListRequest) ([]dto.TaskResponse, error) {
	tasks, err := s.repo.Task.List(ctx, userID, repository.TaskFilter{
		SubjectID: req.SubjectID,
		Query:     req.Query,
	})
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	selected := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if tasks[i].IsArchived(now) == req.Archived {
			selected = append(selected, tasks[i])
		}
	}

	if req.Archived {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].UpdatedAt.After(selected[j].UpdatedAt)
		})
	} else {
		sortTasks(selected)
	}

	list := make([]dto.TaskResponse, 0, len(selected))
	for i := range selected {
		list = append(list, toTaskResponse(&selected[i], now))
	}
	return list, nil
}

func (s *taskService) Get(ctx context.Context, userID, id string) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(task, s.clock.Now())
	return &resp, nil
}

func (s *taskService) Create(ctx context.Context, userID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if err := validateTaskRange(req.StartAt, req.DueAt); err != nil {
		return nil, err
	}
	if err := s.checkSubject(ctx, userID, req.SubjectID); err != nil {
		return nil, err
	}

	task := &model.Task{
		UserID:          userID,
		SubjectID:       normalizeSubjectID(req.SubjectID),
		Title:           req.Title,
		Detail:          req.Detail,
		StartAt:         req.StartAt,
		DueAt:           req.DueAt,
		TaskType:        defaultString(req.TaskType, model.TaskTypeDeadline),
		Link:            req.Link,
		Status:          defaultString(req.Status, model.TaskStatusTodo),
		Category:        defaultString(req.Category, model.TaskCategoryStudy),
		Progress:        req.Progress,
		DurationMinutes: req.DurationMinutes,
		Reminders:       toReminderList(req.Reminders),
	}

	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toTaskResponse(task, s.clock.Now())
	return &resp, nil
}

func (s *taskService) Update(ctx context.Context, userID, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.SubjectID != nil {
		if err := s.checkSubject(ctx, userID, req.SubjectID); err != nil {
			return nil, err
		}
		task.SubjectID = normalizeSubjectID(req.SubjectID)
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Detail != nil {
		task.Detail = *req.Detail
	}
	if req.StartAt != nil {
		task.StartAt = req.StartAt
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if req.TaskType != nil {
		task.TaskType = *req.TaskType
	}
	if req.Link != nil {
		task.Link = *req.Link
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Progress != nil {
		task.Progress = *req.Progress
	}
	if req.DurationMinutes != nil {
		task.DurationMinutes = *req.DurationMinutes
	}
	if req.Reminders != nil {
		task.Reminders = toReminderList(*req.Reminders)
	}

	if err := validateTaskRange(task.StartAt, task.DueAt); err != nil {
		return nil, err
	}

	task.UpdatedAt = s.clock.Now()
	if err := s.repo.Task.Update(ctx, task); err != nil {
		s.logger.Error("更新任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toTaskResponse(task, s.clock.Now())
	return &resp, nil
}

func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getTask(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Task.Delete(ctx, userID, id); err != nil {
		s.logger.Error("删除任务失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *taskService) BatchDelete(ctx context.Context, userID string, ids []string) (int64, error) {
	n, err := s.repo.Task.DeleteBatch(ctx, userID, ids)
	if err != nil {
		s.logger.Error("批量删除任务失败", zap.String("user_id", userID), zap.Int("count", len(ids)), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *taskService) getTask(ctx context.Context, userID, id string) (*model.Task, error) {
	task, err := s.repo.Task.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return task, nil
}

// checkSubject 校验科目归属；nil 或空串表示不关联科目
func (s *taskService) checkSubject(ctx context.Context, userID string, subjectID *string) error {
	if subjectID == nil || *subjectID == "" {
		return nil
	}
	if _, err := s.repo.Subject.GetByID(ctx, userID, *subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", *subjectID), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助函数 ──

func validateTaskRange(startAt, dueAt *time.Time) error {
	if startAt != nil && dueAt != nil && startAt.After(*dueAt) {
		return ErrTaskTimeRange
	}
	return nil
}

func normalizeSubjectID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}

// sortTasks 未完成在前；有截止时间的按截止时间升序排在无截止时间之前；均无截止时间的按创建时间倒序
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		aDone, bDone := a.Status == model.TaskStatusDone, b.Status == model.TaskStatusDone
		if aDone != bDone {
			return !aDone
		}
		switch {
		case a.DueAt != nil && b.DueAt != nil:
			return a.DueAt.Before(*b.DueAt)
		case a.DueAt != nil:
			return true
		case b.DueAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func toReminderList(in []dto.ReminderDTO) model.ReminderList {
	out := make(model.ReminderList, 0, len(in))
	for _, r := range in {
		out = append(out, model.Reminder{Type: r.Type, Amount: r.Amount})
	}
	return out
}

func toReminderDTOs(in model.ReminderList) []dto.ReminderDTO {
	out := make([]dto.ReminderDTO, 0, len(in))
	for _, r := range in {
		out = append(out, dto.ReminderDTO{Type: r.Type, Amount: r.Amount})
	}
	return out
}

func toTaskResponse(t *model.Task, now time.Time) dto.TaskResponse {
	return dto.TaskResponse{
		ID:              t.TaskID,
		SubjectID:       t.SubjectID,
		Title:           t.Title,
		Detail:          t.Detail,
		StartAt:         t.StartAt,
		DueAt:           t.DueAt,
		TaskType:        t.TaskType,
		Link:            t.Link,
		Status:          t.Status,
		Category:        t.Category,
		Progress:        t.Progress,
		DurationMinutes: t.DurationMinutes,
		Reminders:       toReminderDTOs(t.Reminders),
		Archived:        t.IsArchived(now),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func defaultString(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
