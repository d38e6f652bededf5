package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Chacatphol/FlowO/internal/model"
)

// OverrideRepository 课程周状态覆盖数据访问接口
type OverrideRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.ScheduleOverride, error)
	// Upsert 按 (course_id, week_start) 写入或更新状态
	Upsert(ctx context.Context, o *model.ScheduleOverride) error
	BatchCreate(ctx context.Context, overrides []model.ScheduleOverride) error
	Delete(ctx context.Context, userID, courseID string, weekStart time.Time) error
	DeleteByCourse(ctx context.Context, userID, courseID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type overrideRepo struct {
	db *gorm.DB
}

// NewOverrideRepo 创建 OverrideRepository 实例
func NewOverrideRepo(db *gorm.DB) OverrideRepository {
	return &overrideRepo{db: db}
}

func (r *overrideRepo) ListByUser(ctx context.Context, userID string) ([]model.ScheduleOverride, error) {
	var overrides []model.ScheduleOverride
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start ASC, course_id ASC").
		Find(&overrides).Error
	return overrides, err
}

func (r *overrideRepo) Upsert(ctx context.Context, o *model.ScheduleOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(o).Error
}

func (r *overrideRepo) BatchCreate(ctx context.Context, overrides []model.ScheduleOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&overrides).Error
}

func (r *overrideRepo) Delete(ctx context.Context, userID, courseID string, weekStart time.Time) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND week_start = ?", userID, courseID, weekStart.Format("2006-01-02")).
		Delete(&model.ScheduleOverride{}).Error
}

func (r *overrideRepo) DeleteByCourse(ctx context.Context, userID, courseID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.ScheduleOverride{}).Error
}

func (r *overrideRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.ScheduleOverride{}).Error
}
