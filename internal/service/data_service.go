package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// 旧版客户端使用泰文任务分类
var legacyCategories = map[string]string{
	"เรียน":   model.TaskCategoryStudy,
	"งาน":     model.TaskCategoryWork,
	"ส่วนตัว": model.TaskCategoryPersonal,
}

// DataService 用户数据备份、恢复与清空
type DataService interface {
	Export(ctx context.Context, userID string) (*dto.BackupDocument, error)
	// Import 以备份文档整体替换用户数据；无法识别的条目跳过并计数
	Import(ctx context.Context, userID string, doc *dto.BackupDocument) (*dto.ImportResult, error)
	// Clear 删除用户全部科目、任务、课程与覆盖，并重置连续登录
	Clear(ctx context.Context, userID string) error
}

type dataService struct {
	repo   *repository.Repository
	clock  Clock
	share  ShareService
	logger *zap.Logger
}

// NewDataService 创建 DataService 实例
func NewDataService(repo *repository.Repository, clk Clock, share ShareService, logger *zap.Logger) DataService {
	return &dataService{repo: repo, clock: clk, share: share, logger: logger}
}

func (s *dataService) Export(ctx context.Context, userID string) (*dto.BackupDocument, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	subjects, err := s.repo.Subject.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("导出科目失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	tasks, err := s.repo.Task.List(ctx, userID, repository.TaskFilter{})
	if err != nil {
		s.logger.Error("导出任务失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	courses, overrides, err := loadScheduleSnapshot(ctx, s.repo, userID, s.logger)
	if err != nil {
		return nil, err
	}

	doc := &dto.BackupDocument{
		Subjects:          make([]json.RawMessage, 0, len(subjects)),
		Tasks:             make([]json.RawMessage, 0, len(tasks)),
		Courses:           make([]json.RawMessage, 0, len(courses)),
		ScheduleOverrides: make(map[string]string, len(overrides)),
		LoginStreak:       user.LoginStreak,
	}
	if user.LastLoginAt != nil {
		doc.LastLogin = user.LastLoginAt.UTC().Format(time.RFC3339)
	}

	for i := range subjects {
		raw, err := json.Marshal(dto.BackupSubject{
			ID:    subjects[i].SubjectID,
			Name:  subjects[i].Name,
			Color: subjects[i].Color,
		})
		if err != nil {
			return nil, err
		}
		doc.Subjects = append(doc.Subjects, raw)
	}

	for i := range tasks {
		raw, err := json.Marshal(toBackupTask(&tasks[i]))
		if err != nil {
			return nil, err
		}
		doc.Tasks = append(doc.Tasks, raw)
	}

	for i := range courses {
		c := &courses[i]
		raw, err := json.Marshal(dto.BackupCourse{
			ID:            c.CourseID,
			Name:          c.Name,
			Code:          c.Code,
			DayOfWeek:     c.DayOfWeek,
			StartTime:     c.StartTime,
			EndTime:       c.EndTime,
			ScheduleType:  c.ScheduleType,
			Room:          c.Room,
			SecondaryRoom: c.SecondaryRoom,
			Instructor:    c.Instructor,
			Color:         c.Color,
		})
		if err != nil {
			return nil, err
		}
		doc.Courses = append(doc.Courses, raw)
	}

	for key, status := range overrides {
		doc.ScheduleOverrides[key.String()] = string(status)
	}

	return doc, nil
}

func (s *dataService) Import(ctx context.Context, userID string, doc *dto.BackupDocument) (*dto.ImportResult, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	result := &dto.ImportResult{}
	now := s.clock.Now()

	// ── 科目 ──
	subjectIDs := make(map[string]string)
	subjects := make([]model.Subject, 0, len(doc.Subjects))
	for _, raw := range doc.Subjects {
		var in dto.BackupSubject
		if err := json.Unmarshal(raw, &in); err != nil || strings.TrimSpace(in.Name) == "" {
			result.Skipped++
			continue
		}
		id := uuid.NewString()
		if in.ID != "" {
			subjectIDs[in.ID] = id
		}
		subjects = append(subjects, model.Subject{
			SubjectID: id,
			UserID:    userID,
			Name:      strings.TrimSpace(in.Name),
			Color:     in.Color,
		})
	}

	// ── 任务 ──
	tasks := make([]model.Task, 0, len(doc.Tasks))
	for _, raw := range doc.Tasks {
		var in dto.BackupTask
		if err := json.Unmarshal(raw, &in); err != nil {
			result.Skipped++
			continue
		}
		task, ok := s.fromBackupTask(&in, userID, subjectIDs, now)
		if !ok {
			result.Skipped++
			continue
		}
		tasks = append(tasks, *task)
	}

	// ── 课程 ──
	courseIDs := make(map[string]string)
	courses := make([]model.Course, 0, len(doc.Courses))
	for _, raw := range doc.Courses {
		var in dto.BackupCourse
		if err := json.Unmarshal(raw, &in); err != nil {
			result.Skipped++
			continue
		}
		course := fromBackupCourse(&in, userID)
		if err := course.Schedule().Validate(); err != nil || strings.TrimSpace(course.Name) == "" {
			result.Skipped++
			continue
		}
		if in.ID != "" {
			courseIDs[in.ID] = course.CourseID
		}
		courses = append(courses, *course)
	}

	// ── 周状态覆盖 ──
	overrides := make([]model.ScheduleOverride, 0, len(doc.ScheduleOverrides))
	for rawKey, rawStatus := range doc.ScheduleOverrides {
		key, err := schedule.ParseOverrideKey(rawKey)
		if err != nil {
			result.Skipped++
			continue
		}
		courseID, ok := courseIDs[key.CourseID]
		status := schedule.Status(rawStatus)
		if !ok || !status.Valid() {
			result.Skipped++
			continue
		}
		weekStart, _ := time.Parse(dateLayout, key.WeekStart)
		overrides = append(overrides, model.ScheduleOverride{
			CourseID:  courseID,
			WeekStart: weekStart,
			UserID:    userID,
			Status:    string(status),
		})
	}

	user.LoginStreak = max(doc.LoginStreak, 0)
	user.LastLoginAt = nil
	if doc.LastLogin != "" {
		if t, err := time.Parse(time.RFC3339, doc.LastLogin); err == nil {
			user.LastLoginAt = &t
		}
	}

	err = runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		if err := clearUserData(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.Subject.BatchCreate(ctx, subjects); err != nil {
			return err
		}
		if err := tx.Task.BatchCreate(ctx, tasks); err != nil {
			return err
		}
		if err := tx.Course.BatchCreate(ctx, courses); err != nil {
			return err
		}
		if err := tx.Override.BatchCreate(ctx, overrides); err != nil {
			return err
		}
		return tx.User.Update(ctx, user)
	})
	if err != nil {
		s.logger.Error("导入备份失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	result.Subjects = len(subjects)
	result.Tasks = len(tasks)
	result.Courses = len(courses)
	result.Overrides = len(overrides)

	s.logger.Info("备份导入完成",
		zap.String("user_id", userID),
		zap.Int("subjects", result.Subjects),
		zap.Int("tasks", result.Tasks),
		zap.Int("courses", result.Courses),
		zap.Int("overrides", result.Overrides),
		zap.Int("skipped", result.Skipped),
	)

	s.share.Sync(ctx, userID)
	return result, nil
}

func (s *dataService) Clear(ctx context.Context, userID string) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	user.LoginStreak = 0
	user.LastLoginAt = nil

	err = runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		if err := clearUserData(ctx, tx, userID); err != nil {
			return err
		}
		return tx.User.Update(ctx, user)
	})
	if err != nil {
		s.logger.Error("清空用户数据失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.logger.Info("用户数据已清空", zap.String("user_id", userID))
	s.share.Sync(ctx, userID)
	return nil
}

// clearUserData 按外键依赖顺序删除用户数据
func clearUserData(ctx context.Context, repo *repository.Repository, userID string) error {
	if err := repo.Override.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := repo.Course.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := repo.Task.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	return repo.Subject.DeleteByUser(ctx, userID)
}

// fromBackupTask 转换备份任务；标题为空、时间无法识别或时间区间非法时返回 false
func (s *dataService) fromBackupTask(in *dto.BackupTask, userID string, subjectIDs map[string]string, now time.Time) (*model.Task, bool) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, false
	}

	loc := s.clock.Location
	startAt, ok1 := in.StartAt.In(loc)
	dueAt, ok2 := in.DueAt.In(loc)
	createdAt, ok3 := in.CreatedAt.In(loc)
	updatedAt, ok4 := in.UpdatedAt.In(loc)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	if validateTaskRange(startAt, dueAt) != nil {
		return nil, false
	}

	task := &model.Task{
		TaskID:          uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Detail:          in.Detail,
		StartAt:         startAt,
		DueAt:           dueAt,
		TaskType:        model.TaskTypeDeadline,
		Link:            in.Link,
		Status:          model.TaskStatusTodo,
		Category:        normalizeCategory(in.Category),
		Progress:        min(max(in.Progress, 0), 100),
		DurationMinutes: max(in.DurationMinutes, 0),
		Reminders:       model.ReminderList{},
	}
	if in.TaskType == model.TaskTypeEvent {
		task.TaskType = model.TaskTypeEvent
	}
	switch in.Status {
	case model.TaskStatusDoing, model.TaskStatusDone:
		task.Status = in.Status
	}
	if id, ok := subjectIDs[in.SubjectID]; ok {
		task.SubjectID = &id
	}
	for _, r := range in.Reminders {
		rem := model.Reminder{Type: r.Type, Amount: r.Amount}
		if _, ok := rem.Offset(); ok {
			task.Reminders = append(task.Reminders, rem)
		}
	}

	task.CreatedAt = now
	if createdAt != nil {
		task.CreatedAt = *createdAt
	}
	task.UpdatedAt = task.CreatedAt
	if updatedAt != nil {
		task.UpdatedAt = *updatedAt
	}
	return task, true
}

func normalizeCategory(c string) string {
	if v, ok := legacyCategories[c]; ok {
		return v
	}
	switch c {
	case model.TaskCategoryWork, model.TaskCategoryPersonal:
		return c
	}
	return model.TaskCategoryStudy
}

func fromBackupCourse(in *dto.BackupCourse, userID string) *model.Course {
	course := &model.Course{
		CourseID:      uuid.NewString(),
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		Code:          in.Code,
		DayOfWeek:     in.DayOfWeek,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		ScheduleType:  in.ScheduleType,
		Room:          in.Room,
		SecondaryRoom: in.SecondaryRoom,
		Instructor:    in.Instructor,
		Color:         in.Color,
	}
	course.Version = 1
	return course
}

func toBackupTask(t *model.Task) dto.BackupTask {
	out := dto.BackupTask{
		ID:              t.TaskID,
		Title:           t.Title,
		Detail:          t.Detail,
		TaskType:        t.TaskType,
		Link:            t.Link,
		Status:          t.Status,
		Category:        t.Category,
		Progress:        t.Progress,
		DurationMinutes: t.DurationMinutes,
		Reminders:       toReminderDTOs(t.Reminders),
		CreatedAt:       dto.NewBackupTime(t.CreatedAt),
		UpdatedAt:       dto.NewBackupTime(t.UpdatedAt),
	}
	if t.SubjectID != nil {
		out.SubjectID = *t.SubjectID
	}
	if t.StartAt != nil {
		out.StartAt = dto.NewBackupTime(*t.StartAt)
	}
	if t.DueAt != nil {
		out.DueAt = dto.NewBackupTime(*t.DueAt)
	}
	return out
}
