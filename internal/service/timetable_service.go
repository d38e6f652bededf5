package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ── 课表导入模块业务错误 ──

var (
	ErrTimetableICSParseFailed = errors.New("ICS 文件解析失败")
	ErrTimetableICSFetchFailed = errors.New("ICS 地址无法访问")
	ErrTimetableICSURLBlocked  = errors.New("ICS 地址指向内部网络")
	ErrTimetableICSEmpty       = errors.New("ICS 文件中未发现仍在进行的每周课程")
)

// ── TimetableService 接口 ──────────────────────────────────
//
// 导入为追加模式：已存在 name+day+start+end 相同的课程时跳过。
// 导入的课程上课方式统一为 onsite-always，由用户之后自行调整。
// ─────────────────────────────────────────────────────────────

// TimetableService 课表导入业务接口
type TimetableService interface {
	// ImportICS 从 ICS 数据流导入课程
	ImportICS(ctx context.Context, reader io.Reader, userID string) (*dto.ImportICSResponse, error)
	// ImportICSFromURL 下载 ICS 后导入（支持 webcal://）
	ImportICSFromURL(ctx context.Context, rawURL string, userID string) (*dto.ImportICSResponse, error)
}

type timetableService struct {
	repo   *repository.Repository
	clock  Clock
	share  ShareService
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, clk Clock, share ShareService, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, clock: clk, share: share, logger: logger}
}

func (s *timetableService) ImportICSFromURL(ctx context.Context, rawURL string, userID string) (*dto.ImportICSResponse, error) {
	body, err := FetchICSContent(ctx, rawURL)
	if err != nil {
		s.logger.Warn("获取 ICS 失败", zap.String("url", rawURL), zap.Error(err))
		if errors.Is(err, ErrICSAddressBlocked) {
			return nil, ErrTimetableICSURLBlocked
		}
		return nil, ErrTimetableICSFetchFailed
	}
	defer body.Close()

	return s.ImportICS(ctx, body, userID)
}

// ════════════════════════════════════════════════════════════
// ImportICS — 导入 ICS 课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 解析 ICS 内容为仍在进行的每周课程
//   2. 与已有课程去重，逐条校验
//   3. 批量插入并同步分享快照

func (s *timetableService) ImportICS(ctx context.Context, reader io.Reader, userID string) (*dto.ImportICSResponse, error) {
	// 1. 解析 ICS
	events, err := ParseICS(reader, s.clock.Now(), s.clock.Location)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrTimetableICSParseFailed
	}
	if len(events) == 0 {
		return nil, ErrTimetableICSEmpty
	}

	// 2. 去重
	existing, err := s.repo.Course.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for i := range existing {
		c := &existing[i]
		seen[courseIdentity(c.Name, c.DayOfWeek, c.StartTime, c.EndTime)] = true
	}

	resp := &dto.ImportICSResponse{Events: make([]dto.ImportedCourseEvent, 0, len(events))}
	courses := make([]model.Course, 0, len(events))
	for _, evt := range events {
		id := courseIdentity(evt.Name, evt.DayOfWeek, evt.StartTime, evt.EndTime)
		course := model.Course{
			CourseID:     uuid.NewString(),
			UserID:       userID,
			Name:         evt.Name,
			DayOfWeek:    evt.DayOfWeek,
			StartTime:    evt.StartTime,
			EndTime:      evt.EndTime,
			ScheduleType: string(schedule.ModeOnsiteAlways),
			Room:         evt.Room,
		}
		course.Version = 1
		if seen[id] || course.Schedule().Validate() != nil {
			resp.SkippedCount++
			continue
		}
		seen[id] = true
		courses = append(courses, course)
		resp.Events = append(resp.Events, dto.ImportedCourseEvent{
			Name:      evt.Name,
			Room:      evt.Room,
			DayOfWeek: evt.DayOfWeek,
			StartTime: evt.StartTime,
			EndTime:   evt.EndTime,
		})
	}

	// 3. 批量插入
	if err := s.repo.Course.BatchCreate(ctx, courses); err != nil {
		s.logger.Error("课表导入失败", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("课表导入失败: %w", err)
	}
	resp.ImportedCount = len(courses)

	s.logger.Info("ICS 课表导入完成",
		zap.String("user_id", userID),
		zap.Int("imported", resp.ImportedCount),
		zap.Int("skipped", resp.SkippedCount),
	)

	if resp.ImportedCount > 0 {
		s.share.Sync(ctx, userID)
	}
	return resp, nil
}

func courseIdentity(name string, day int, start, end string) string {
	return fmt.Sprintf("%s|%d|%s|%s", name, day, start, end)
}
