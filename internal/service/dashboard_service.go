package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
)

// dueSoonLimit 仪表盘“即将截止”最多展示条数
const dueSoonLimit = 5

// DashboardService 仪表盘汇总
type DashboardService interface {
	// Get 汇总 date（缺省为今天）当天的任务、进度与课程
	Get(ctx context.Context, userID, date string) (*dto.DashboardResponse, error)
	// Calendar 月历标记，month 为 YYYY-MM（缺省为本月）
	Calendar(ctx context.Context, userID, month string) (*dto.CalendarResponse, error)
}

type dashboardService struct {
	repo     *repository.Repository
	clock    Clock
	schedule ScheduleService
	logger   *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, clk Clock, sched ScheduleService, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, clock: clk, schedule: sched, logger: logger}
}

func (s *dashboardService) Get(ctx context.Context, userID, date string) (*dto.DashboardResponse, error) {
	day, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	tasks, err := s.repo.Task.List(ctx, userID, repository.TaskFilter{})
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	courses, err := s.schedule.GetDay(ctx, userID, day.Format(dateLayout))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var today, pending []model.Task
	done := 0
	for i := range tasks {
		t := tasks[i]
		if t.Status == model.TaskStatusDone {
			done++
		}
		if t.DueAt == nil {
			continue
		}
		if s.clock.SameDay(*t.DueAt, day) {
			today = append(today, t)
		}
		if t.Status != model.TaskStatusDone {
			pending = append(pending, t)
		}
	}

	sortTasks(today)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueAt.Before(*pending[j].DueAt)
	})
	if len(pending) > dueSoonLimit {
		pending = pending[:dueSoonLimit]
	}

	progress := averageProgress(today)
	if len(today) == 0 {
		progress = averageProgress(tasks)
	}

	resp := &dto.DashboardResponse{
		Date:          day.Format(dateLayout),
		TodayTasks:    make([]dto.TaskResponse, 0, len(today)),
		ProgressToday: progress,
		LazyScore:     lazyScore(progress),
		DoneCount:     done,
		DueSoon:       make([]dto.TaskResponse, 0, len(pending)),
		LoginStreak:   user.LoginStreak,
		TodayCourses:  courses.Courses,
		Agenda:        s.buildAgenda(tasks, day, now),
	}
	for i := range today {
		resp.TodayTasks = append(resp.TodayTasks, toTaskResponse(&today[i], now))
	}
	for i := range pending {
		resp.DueSoon = append(resp.DueSoon, toTaskResponse(&pending[i], now))
	}
	return resp, nil
}

// averageProgress 进度平均值（四舍五入），空列表为 0
func averageProgress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	sum := 0
	for i := range tasks {
		sum += tasks[i].Progress
	}
	return int(math.Round(float64(sum) / float64(len(tasks))))
}

func lazyScore(progress int) int {
	if progress >= 100 {
		return 0
	}
	return 100 - progress
}
