package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/model"
)

// SubjectRepository 科目数据访问接口
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	BatchCreate(ctx context.Context, subjects []model.Subject) error
	GetByID(ctx context.Context, userID, id string) (*model.Subject, error)
	ListByUser(ctx context.Context, userID string) ([]model.Subject, error)
	Update(ctx context.Context, subject *model.Subject) error
	Delete(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) BatchCreate(ctx context.Context, subjects []model.Subject) error {
	if len(subjects) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&subjects).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, userID, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", id, userID).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) ListByUser(ctx context.Context, userID string) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *subjectRepo) Update(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).
		Model(subject).
		Where("subject_id = ? AND user_id = ?", subject.SubjectID, subject.UserID).
		Updates(map[string]interface{}{
			"name":  subject.Name,
			"color": subject.Color,
		}).Error
}

func (r *subjectRepo) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", id, userID).
		Delete(&model.Subject{}).Error
}

func (r *subjectRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Subject{}).Error
}
