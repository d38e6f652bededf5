package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	pkgerrors "github.com/Chacatphol/FlowO/pkg/errors"
)

// ── 课程模块业务错误 ──

var ErrCourseNotFound = errors.New("课程不存在")

// CourseService 课程业务接口
//
// 写入前统一执行 schedule.Course.Validate，上课方式未知时拒绝写入；
// 课程变更后同步分享快照。
type CourseService interface {
	List(ctx context.Context, userID string) ([]dto.CourseResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.CourseResponse, error)
	Create(ctx context.Context, userID string, req *dto.CourseRequest) (*dto.CourseResponse, error)
	// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, userID, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	// Delete 删除课程及其全部周状态覆盖
	Delete(ctx context.Context, userID, id string) error
}

type courseService struct {
	repo   *repository.Repository
	share  ShareService
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, share ShareService, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, share: share, logger: logger}
}

func (s *courseService) List(ctx context.Context, userID string) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toCourseResponses(courses), nil
}

func (s *courseService) Get(ctx context.Context, userID, id string) (*dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Create(ctx context.Context, userID string, req *dto.CourseRequest) (*dto.CourseResponse, error) {
	course := &model.Course{
		CourseID: uuid.NewString(),
		UserID:   userID,
	}
	course.Version = 1
	applyCourseRequest(course, req)

	if err := course.Schedule().Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.share.Sync(ctx, userID)

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Update(ctx context.Context, userID, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	applyCourseRequest(course, &req.CourseRequest)
	course.Version = req.Version

	if err := course.Schedule().Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Course.Update(ctx, course); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.share.Sync(ctx, userID)

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getCourse(ctx, userID, id); err != nil {
		return err
	}

	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Override.DeleteByCourse(ctx, userID, id); err != nil {
			return err
		}
		return txRepo.Course.Delete(ctx, userID, id)
	})
	if err != nil {
		s.logger.Error("删除课程失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.share.Sync(ctx, userID)
	return nil
}

func (s *courseService) getCourse(ctx context.Context, userID, id string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return course, nil
}

// ── 辅助函数 ──

func applyCourseRequest(c *model.Course, req *dto.CourseRequest) {
	c.Name = req.Name
	c.Code = req.Code
	c.DayOfWeek = req.DayOfWeek
	c.StartTime = req.StartTime
	c.EndTime = req.EndTime
	c.ScheduleType = req.ScheduleType
	c.Room = req.Room
	c.SecondaryRoom = req.SecondaryRoom
	c.Instructor = req.Instructor
	c.Color = req.Color
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	return dto.CourseResponse{
		ID:            c.CourseID,
		Name:          c.Name,
		Code:          c.Code,
		DayOfWeek:     c.DayOfWeek,
		StartTime:     c.StartTime,
		EndTime:       c.EndTime,
		ScheduleType:  c.ScheduleType,
		Room:          c.Room,
		SecondaryRoom: c.SecondaryRoom,
		Instructor:    c.Instructor,
		Color:         c.Color,
		Version:       c.Version,
	}
}

func toCourseResponses(courses []model.Course) []dto.CourseResponse {
	list := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		list = append(list, toCourseResponse(&courses[i]))
	}
	return list
}
