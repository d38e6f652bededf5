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
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ScheduleService 课表视图与线上/线下切换
type ScheduleService interface {
	GetWeek(ctx context.Context, userID, date string) (*dto.WeekScheduleResponse, error)
	GetDay(ctx context.Context, userID, date string) (*dto.DayScheduleResponse, error)
	// ToggleCourse 翻转课程在 date 所在周的状态，并持久化该周的覆盖变化（写入或删除）
	ToggleCourse(ctx context.Context, userID, courseID, date string) (*dto.ScheduledCourse, error)
	GetParity(date string) (*dto.ParityResponse, error)
}

type scheduleService struct {
	repo     *repository.Repository
	resolver *schedule.Resolver
	clock    Clock
	share    ShareService
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	repo *repository.Repository,
	resolver *schedule.Resolver,
	clk Clock,
	share ShareService,
	logger *zap.Logger,
) ScheduleService {
	return &scheduleService{
		repo:     repo,
		resolver: resolver,
		clock:    clk,
		share:    share,
		logger:   logger,
	}
}

func (s *scheduleService) GetWeek(ctx context.Context, userID, date string) (*dto.WeekScheduleResponse, error) {
	d, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	courses, overrides, err := loadScheduleSnapshot(ctx, s.repo, userID, s.logger)
	if err != nil {
		return nil, err
	}
	return buildWeekView(s.resolver, courses, overrides, d, s.logger)
}

func (s *scheduleService) GetDay(ctx context.Context, userID, date string) (*dto.DayScheduleResponse, error) {
	d, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	courses, overrides, err := loadScheduleSnapshot(ctx, s.repo, userID, s.logger)
	if err != nil {
		return nil, err
	}
	day := buildDayView(s.resolver, courses, overrides, d, s.logger)
	return &day, nil
}

func (s *scheduleService) ToggleCourse(ctx context.Context, userID, courseID, date string) (*dto.ScheduledCourse, error) {
	d, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}

	// 锁定课程行，同一课程的并发切换串行执行
	var (
		course *model.Course
		next   schedule.Overrides
		key    schedule.OverrideKey
	)
	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		var err error
		course, err = txRepo.Course.GetByIDForUpdate(ctx, userID, courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
			return err
		}

		rows, err := txRepo.Override.ListByUser(ctx, userID)
		if err != nil {
			s.logger.Error("查询覆盖记录失败", zap.String("user_id", userID), zap.Error(err))
			return err
		}

		next, err = s.resolver.ToggleOverride(course.Schedule(), d, model.OverridesFromRows(rows))
		if err != nil {
			return err
		}

		key, err = schedule.KeyFor(course.CourseID, d)
		if err != nil {
			return err
		}
		weekStart := schedule.WeekStart(d)

		if status, ok := next[key]; ok {
			err = txRepo.Override.Upsert(ctx, &model.ScheduleOverride{
				CourseID:  course.CourseID,
				WeekStart: weekStart,
				UserID:    userID,
				Status:    string(status),
			})
		} else {
			err = txRepo.Override.Delete(ctx, userID, course.CourseID, weekStart)
		}
		if err != nil {
			s.logger.Error("保存覆盖记录失败", zap.String("key", key.String()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.ResolveStatus(course.Schedule(), d, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("课程状态已切换",
		zap.String("user_id", userID),
		zap.String("key", key.String()),
		zap.String("status", string(res.Status)),
		zap.Bool("overridden", res.IsOverridden),
	)

	s.share.Sync(ctx, userID)

	item := toScheduledCourse(course, d, res)
	return &item, nil
}

func (s *scheduleService) GetParity(date string) (*dto.ParityResponse, error) {
	d, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	parity, err := s.resolver.ComputeWeekParity(d)
	if err != nil {
		return nil, err
	}
	return &dto.ParityResponse{
		Date:      d.Format(dateLayout),
		WeekStart: schedule.WeekStart(d).Format(dateLayout),
		Parity:    string(parity),
	}, nil
}

// ── 视图构建（同时服务于公开分享页） ──

// loadScheduleSnapshot 读取用户的全部课程与覆盖快照
func loadScheduleSnapshot(ctx context.Context, repo *repository.Repository, userID string, logger *zap.Logger) ([]model.Course, schedule.Overrides, error) {
	courses, err := repo.Course.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}
	rows, err := repo.Override.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("查询覆盖记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}
	return courses, model.OverridesFromRows(rows), nil
}

// buildWeekView 周一至周五；周末有课时追加对应日期
func buildWeekView(resolver *schedule.Resolver, courses []model.Course, overrides schedule.Overrides, date time.Time, logger *zap.Logger) (*dto.WeekScheduleResponse, error) {
	parity, err := resolver.ComputeWeekParity(date)
	if err != nil {
		return nil, err
	}
	monday := schedule.WeekStart(date)

	lastDay := 5
	for i := range courses {
		if courses[i].DayOfWeek > lastDay {
			lastDay = courses[i].DayOfWeek
		}
	}

	days := make([]dto.DayScheduleResponse, 0, lastDay)
	for i := 0; i < lastDay; i++ {
		d := monday.AddDate(0, 0, i)
		day := buildDayView(resolver, courses, overrides, d, logger)
		if i >= 5 && len(day.Courses) == 0 {
			continue
		}
		days = append(days, day)
	}

	return &dto.WeekScheduleResponse{
		WeekStart: monday.Format(dateLayout),
		Parity:    string(parity),
		Days:      days,
	}, nil
}

// buildDayView 当天的课程按开始时间排序，并附带解析后的状态
func buildDayView(resolver *schedule.Resolver, courses []model.Course, overrides schedule.Overrides, date time.Time, logger *zap.Logger) dto.DayScheduleResponse {
	dow := goWeekdayToISO(date.Weekday())
	parity, _ := resolver.ComputeWeekParity(date)

	var todays []model.Course
	for i := range courses {
		if courses[i].DayOfWeek == dow {
			todays = append(todays, courses[i])
		}
	}
	sort.SliceStable(todays, func(i, j int) bool {
		return todays[i].StartTime < todays[j].StartTime
	})

	items := make([]dto.ScheduledCourse, 0, len(todays))
	for i := range todays {
		res, err := resolver.ResolveStatus(todays[i].Schedule(), date, overrides)
		if err != nil {
			logger.Warn("课程状态解析失败", zap.String("course_id", todays[i].CourseID), zap.Error(err))
			res = schedule.Resolution{Status: schedule.StatusUnknown}
		}
		items = append(items, toScheduledCourse(&todays[i], date, res))
	}

	return dto.DayScheduleResponse{
		Date:      date.Format(dateLayout),
		DayOfWeek: dow,
		Parity:    string(parity),
		Courses:   items,
	}
}

func toScheduledCourse(c *model.Course, date time.Time, res schedule.Resolution) dto.ScheduledCourse {
	return dto.ScheduledCourse{
		CourseResponse: toCourseResponse(c),
		Date:           date.Format(dateLayout),
		Status:         string(res.Status),
		IsOverridden:   res.IsOverridden,
	}
}
