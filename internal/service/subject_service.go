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

// ── 科目模块业务错误 ──

var ErrSubjectNotFound = errors.New("科目不存在")

// SubjectService 科目业务接口
type SubjectService interface {
	List(ctx context.Context, userID string) ([]dto.SubjectResponse, error)
	Create(ctx context.Context, userID string, req *dto.SubjectRequest) (*dto.SubjectResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.SubjectRequest) (*dto.SubjectResponse, error)
	// Delete 删除科目及其下所有任务
	Delete(ctx context.Context, userID, id string) error
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

func (s *subjectService) List(ctx context.Context, userID string) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		list = append(list, toSubjectResponse(&subjects[i]))
	}
	return list, nil
}

func (s *subjectService) Create(ctx context.Context, userID string, req *dto.SubjectRequest) (*dto.SubjectResponse, error) {
	subject := &model.Subject{
		UserID: userID,
		Name:   req.Name,
		Color:  req.Color,
	}
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *subjectService) Update(ctx context.Context, userID, id string, req *dto.SubjectRequest) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	subject.Name = req.Name
	subject.Color = req.Color
	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		s.logger.Error("更新科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *subjectService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.repo.Subject.GetByID(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return err
	}

	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Task.DeleteBySubject(ctx, userID, id); err != nil {
			return err
		}
		return txRepo.Subject.Delete(ctx, userID, id)
	})
	if err != nil {
		s.logger.Error("删除科目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func toSubjectResponse(s *model.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{ID: s.SubjectID, Name: s.Name, Color: s.Color}
}
