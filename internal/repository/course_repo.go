package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Chacatphol/FlowO/internal/model"
	pkgerrors "github.com/Chacatphol/FlowO/pkg/errors"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	BatchCreate(ctx context.Context, courses []model.Course) error
	GetByID(ctx context.Context, userID, id string) (*model.Course, error)
	// GetByIDForUpdate 在事务中读取并锁定课程行（SELECT ... FOR UPDATE）
	GetByIDForUpdate(ctx context.Context, userID, id string) (*model.Course, error)
	ListByUser(ctx context.Context, userID string) ([]model.Course, error)
	// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) BatchCreate(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&courses).Error
}

func (r *courseRepo) GetByID(ctx context.Context, userID, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", id, userID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByIDForUpdate(ctx context.Context, userID, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ? AND user_id = ?", id, userID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListByUser(ctx context.Context, userID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day_of_week ASC, start_time ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	oldVersion := course.Version
	result := r.db.WithContext(ctx).
		Model(course).
		Where("course_id = ? AND user_id = ? AND version = ?", course.CourseID, course.UserID, oldVersion).
		Updates(map[string]interface{}{
			"name":           course.Name,
			"code":           course.Code,
			"day_of_week":    course.DayOfWeek,
			"start_time":     course.StartTime,
			"end_time":       course.EndTime,
			"schedule_type":  course.ScheduleType,
			"room":           course.Room,
			"secondary_room": course.SecondaryRoom,
			"instructor":     course.Instructor,
			"color":          course.Color,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version = oldVersion + 1
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", id, userID).
		Delete(&model.Course{}).Error
}

func (r *courseRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Course{}).Error
}
