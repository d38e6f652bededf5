package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
)

// ReminderService 任务截止提醒
//
// 由定时任务周期调用：对每个未完成且带截止时间的任务，按提醒配置计算触发时刻
// due_at - amount*unit，触发时刻落在 (now - lookback, now] 内时生成一条提醒消息。
// 同一 (task, fire_at) 只会写入一次，因此 lookback 大于调度间隔时重复扫描是安全的。
type ReminderService interface {
	// DispatchDue 生成到期提醒，返回新写入的条数
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

type reminderService struct {
	repo     *repository.Repository
	lookback time.Duration
	logger   *zap.Logger
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(repo *repository.Repository, lookback time.Duration, logger *zap.Logger) ReminderService {
	if lookback <= 0 {
		lookback = 5 * time.Minute
	}
	return &reminderService{repo: repo, lookback: lookback, logger: logger}
}

func (s *reminderService) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	tasks, err := s.repo.Task.ListReminderCandidates(ctx)
	if err != nil {
		s.logger.Error("查询待提醒任务失败", zap.Error(err))
		return 0, err
	}

	windowStart := now.Add(-s.lookback)
	subjectNames := make(map[string]string)
	created := 0

	for i := range tasks {
		task := &tasks[i]
		for _, fireAt := range reminderFireTimes(task) {
			if !fireAt.After(windowStart) || fireAt.After(now) {
				continue
			}

			n := &model.Notification{
				UserID:  task.UserID,
				TaskID:  task.TaskID,
				Title:   fmt.Sprintf("即将截止: %s", task.Title),
				Content: fmt.Sprintf("科目: %s", s.subjectName(ctx, task, subjectNames)),
				FireAt:  fireAt,
			}
			ok, err := s.repo.Notification.CreateIfAbsent(ctx, n)
			if err != nil {
				s.logger.Error("写入提醒失败", zap.String("task_id", task.TaskID), zap.Error(err))
				return created, err
			}
			if ok {
				created++
			}
		}
	}

	if created > 0 {
		s.logger.Info("已生成截止提醒", zap.Int("count", created))
	}
	return created, nil
}

// subjectName 科目名称，同一轮扫描内按 subject_id 缓存
func (s *reminderService) subjectName(ctx context.Context, task *model.Task, cache map[string]string) string {
	if task.SubjectID == nil {
		return "未分类"
	}
	if name, ok := cache[*task.SubjectID]; ok {
		return name
	}

	name := "未分类"
	subject, err := s.repo.Subject.GetByID(ctx, task.UserID, *task.SubjectID)
	if err == nil {
		name = subject.Name
	}
	cache[*task.SubjectID] = name
	return name
}

// reminderFireTimes 任务各提醒的触发时刻，非法提醒被忽略
func reminderFireTimes(task *model.Task) []time.Time {
	if task.DueAt == nil {
		return nil
	}
	out := make([]time.Time, 0, len(task.Reminders))
	for _, r := range task.Reminders {
		offset, ok := r.Offset()
		if !ok {
			continue
		}
		out = append(out, task.DueAt.Add(-offset))
	}
	return out
}
