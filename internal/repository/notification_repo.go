package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Chacatphol/FlowO/internal/model"
)

// NotificationRepository 提醒消息数据访问接口
type NotificationRepository interface {
	// CreateIfAbsent 写入提醒；(task_id, fire_at) 已存在时忽略并返回 false
	CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error)
	// MarkRead 标记已读，记录不存在时返回 gorm.ErrRecordNotFound
	MarkRead(ctx context.Context, userID, id string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "fire_at"}},
			DoNothing: true,
		}).
		Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("fire_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
