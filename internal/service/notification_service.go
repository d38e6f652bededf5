package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
)

var ErrNotificationNotFound = errors.New("提醒不存在")

// NotificationService 提醒消息查询
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询提醒列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	out := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		out = append(out, toNotificationResponse(&list[i]))
	}
	return out, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.Notification.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记提醒已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:      n.NotificationID,
		TaskID:  n.TaskID,
		Title:   n.Title,
		Content: n.Content,
		FireAt:  n.FireAt,
		IsRead:  n.IsRead,
	}
}
