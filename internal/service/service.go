package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/config"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
	"github.com/Chacatphol/FlowO/pkg/firebase"
	"github.com/Chacatphol/FlowO/pkg/jwt"
)

// ErrInvalidDateParam 日期参数格式错误
var ErrInvalidDateParam = errors.New("日期格式应为 YYYY-MM-DD")

const dateLayout = "2006-01-02"

// IdentityVerifier 校验 Google 登录凭证（由 pkg/firebase.Client 实现）
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// TokenBlacklist Token 黑名单（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SharePublisher 分享快照镜像（由 pkg/firebase.Client 实现）
type SharePublisher interface {
	PublishShareSnapshot(ctx context.Context, token string, snapshot interface{}) error
	RemoveShareSnapshot(ctx context.Context, token string) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Subject      SubjectService
	Task         TaskService
	Course       CourseService
	Schedule     ScheduleService
	Share        ShareService
	Dashboard    DashboardService
	Data         DataService
	Export       ExportService
	Timetable    TimetableService
	Reminder     ReminderService
	Notification NotificationService
}

// NewService 创建 Service 聚合。blacklist 与 publisher 可为 nil（Redis / 实时数据库未启用）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	resolver *schedule.Resolver,
	clk Clock,
	jwtMgr *jwt.Manager,
	verifier IdentityVerifier,
	blacklist TokenBlacklist,
	publisher SharePublisher,
	logger *zap.Logger,
) *Service {
	share := NewShareService(cfg, repo, resolver, clk, publisher, logger)
	sched := NewScheduleService(repo, resolver, clk, share, logger)

	return &Service{
		Auth:         NewAuthService(repo, clk, jwtMgr, verifier, blacklist, logger),
		Subject:      NewSubjectService(repo, logger),
		Task:         NewTaskService(repo, clk, logger),
		Course:       NewCourseService(repo, share, logger),
		Schedule:     sched,
		Share:        share,
		Dashboard:    NewDashboardService(repo, clk, sched, logger),
		Data:         NewDataService(repo, clk, share, logger),
		Export:       NewExportService(sched, logger),
		Timetable:    NewTimetableService(repo, clk, share, logger),
		Reminder:     NewReminderService(repo, cfg.Reminder.Lookback, logger),
		Notification: NewNotificationService(repo, logger),
	}
}

// ── 时钟 ──

// Clock 按课表时区计算“今天”，并解析 YYYY-MM-DD 日期参数
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock 创建时钟，loc 为 nil 时使用 UTC
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

// Today 当前时刻（课表时区）
func (c Clock) Today() time.Time {
	return c.Now().In(c.Location)
}

// ParseDate 解析 YYYY-MM-DD，空串表示今天
func (c Clock) ParseDate(s string) (time.Time, error) {
	if s == "" {
		t := c.Today()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, c.Location)
	if err != nil {
		return time.Time{}, ErrInvalidDateParam
	}
	return t, nil
}

// SameDay t 与 day 在课表时区下是否为同一日历日
func (c Clock) SameDay(t, day time.Time) bool {
	y1, m1, d1 := t.In(c.Location).Date()
	y2, m2, d2 := day.In(c.Location).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ── 事务 ──

// runInTx 在事务中执行 fn；mock 聚合下 BeginTx 返回 nil，fn 直接作用于原聚合
func runInTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}
