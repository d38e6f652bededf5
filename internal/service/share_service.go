package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/config"
	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ── 分享模块业务错误 ──

var ErrShareNotFound = errors.New("分享链接不存在或已关闭")

// ShareService 只读课表分享
//
// 公开周视图与本人周视图使用同一套解析逻辑（含覆盖）。
// 启用 Firebase 实时数据库时，课程或覆盖变化后把快照镜像到 <share_path>/<token>。
type ShareService interface {
	Get(ctx context.Context, userID string) (*dto.ShareResponse, error)
	Enable(ctx context.Context, userID string) (*dto.ShareResponse, error)
	// Disable 关闭分享并作废当前 token
	Disable(ctx context.Context, userID string) error
	// Rotate 生成新 token，旧链接立即失效
	Rotate(ctx context.Context, userID string) (*dto.ShareResponse, error)
	PublicWeek(ctx context.Context, token, date string) (*dto.WeekScheduleResponse, error)
	// Sync 重新发布分享快照；失败只记录日志
	Sync(ctx context.Context, userID string)
}

type shareService struct {
	repo      *repository.Repository
	resolver  *schedule.Resolver
	clock     Clock
	publisher SharePublisher
	baseURL   string
	logger    *zap.Logger
}

// NewShareService 创建 ShareService 实例，publisher 可为 nil
func NewShareService(
	cfg *config.Config,
	repo *repository.Repository,
	resolver *schedule.Resolver,
	clk Clock,
	publisher SharePublisher,
	logger *zap.Logger,
) ShareService {
	return &shareService{
		repo:      repo,
		resolver:  resolver,
		clock:     clk,
		publisher: publisher,
		baseURL:   strings.TrimRight(cfg.Server.BaseURL, "/"),
		logger:    logger,
	}
}

func (s *shareService) Get(ctx context.Context, userID string) (*dto.ShareResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toShareResponse(user), nil
}

func (s *shareService) Enable(ctx context.Context, userID string) (*dto.ShareResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ShareToken == nil {
		token := newShareToken()
		user.ShareToken = &token
	}
	user.ShareEnabled = true

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("开启分享失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课表分享已开启", zap.String("user_id", userID))
	s.publish(ctx, user)
	return s.toShareResponse(user), nil
}

func (s *shareService) Disable(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	oldToken := user.ShareToken
	user.ShareToken = nil
	user.ShareEnabled = false

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("关闭分享失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.logger.Info("课表分享已关闭", zap.String("user_id", userID))
	if oldToken != nil {
		s.unpublish(ctx, *oldToken)
	}
	return nil
}

func (s *shareService) Rotate(ctx context.Context, userID string) (*dto.ShareResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldToken := user.ShareToken
	token := newShareToken()
	user.ShareToken = &token
	user.ShareEnabled = true

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置分享链接失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("分享链接已重置", zap.String("user_id", userID))
	if oldToken != nil {
		s.unpublish(ctx, *oldToken)
	}
	s.publish(ctx, user)
	return s.toShareResponse(user), nil
}

func (s *shareService) PublicWeek(ctx context.Context, token, date string) (*dto.WeekScheduleResponse, error) {
	d, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrShareNotFound
	}

	user, err := s.repo.User.GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		s.logger.Error("按分享 token 查询用户失败", zap.Error(err))
		return nil, err
	}

	courses, overrides, err := loadScheduleSnapshot(ctx, s.repo, user.UserID, s.logger)
	if err != nil {
		return nil, err
	}
	return buildWeekView(s.resolver, courses, overrides, d, s.logger)
}

func (s *shareService) Sync(ctx context.Context, userID string) {
	if s.publisher == nil {
		return
	}
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("同步分享快照时查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.publish(ctx, user)
}

// ── 内部方法 ──

func (s *shareService) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *shareService) publish(ctx context.Context, user *model.User) {
	if s.publisher == nil || !user.ShareEnabled || user.ShareToken == nil {
		return
	}

	snapshot, err := s.buildSnapshot(ctx, user)
	if err != nil {
		return
	}
	if err := s.publisher.PublishShareSnapshot(ctx, *user.ShareToken, snapshot); err != nil {
		s.logger.Warn("发布分享快照失败", zap.String("user_id", user.UserID), zap.Error(err))
	}
}

func (s *shareService) unpublish(ctx context.Context, token string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.RemoveShareSnapshot(ctx, token); err != nil {
		s.logger.Warn("移除分享快照失败", zap.Error(err))
	}
}

func (s *shareService) buildSnapshot(ctx context.Context, user *model.User) (*dto.ShareSnapshot, error) {
	courses, overrides, err := loadScheduleSnapshot(ctx, s.repo, user.UserID, s.logger)
	if err != nil {
		return nil, err
	}

	flat := make(map[string]string, len(overrides))
	for key, status := range overrides {
		flat[key.String()] = string(status)
	}

	return &dto.ShareSnapshot{
		Owner:     user.Name,
		Courses:   toCourseResponses(courses),
		Overrides: flat,
		UpdatedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *shareService) toShareResponse(user *model.User) *dto.ShareResponse {
	resp := &dto.ShareResponse{Enabled: user.ShareEnabled}
	if user.ShareEnabled && user.ShareToken != nil {
		resp.Token = *user.ShareToken
		resp.ShareURL = fmt.Sprintf("%s/api/v1/public/share/%s/week", s.baseURL, *user.ShareToken)
	}
	return resp
}

// newShareToken 32 位十六进制随机串
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
