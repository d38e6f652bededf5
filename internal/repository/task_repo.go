package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/model"
)

// TaskFilter 任务列表过滤条件（归档过滤与排序在 service 层完成）
type TaskFilter struct {
	SubjectID string
	Query     string // 标题与详情的不区分大小写子串匹配
}

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	BatchCreate(ctx context.Context, tasks []model.Task) error
	GetByID(ctx context.Context, userID, id string) (*model.Task, error)
	List(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, id string) error
	DeleteBatch(ctx context.Context, userID string, ids []string) (int64, error)
	DeleteBySubject(ctx context.Context, userID, subjectID string) error
	DeleteByUser(ctx context.Context, userID string) error
	// ListReminderCandidates 所有未完成、带截止时间且配置了提醒的任务（跨用户）
	ListReminderCandidates(ctx context.Context) ([]model.Task, error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) BatchCreate(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *taskRepo) GetByID(ctx context.Context, userID, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", id, userID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) List(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.SubjectID != "" {
		db = db.Where("subject_id = ?", filter.SubjectID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := containsPattern(q)
		db = db.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(detail) LIKE ? ESCAPE '\')`, like, like)
	}

	var tasks []model.Task
	err := db.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern 小写子串匹配的 LIKE 模式，% 与 _ 按字面匹配
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}

func (r *taskRepo) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", task.TaskID, task.UserID).
		Save(task).Error
}

func (r *taskRepo) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", id, userID).
		Delete(&model.Task{}).Error
}

func (r *taskRepo) DeleteBatch(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id IN ?", userID, ids).
		Delete(&model.Task{})
	return result.RowsAffected, result.Error
}

func (r *taskRepo) DeleteBySubject(ctx context.Context, userID, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Delete(&model.Task{}).Error
}

func (r *taskRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Task{}).Error
}

func (r *taskRepo) ListReminderCandidates(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("status <> ? AND due_at IS NOT NULL AND reminders <> '[]'::jsonb", model.TaskStatusDone).
		Order("due_at ASC").
		Find(&tasks).Error
	return tasks, err
}
