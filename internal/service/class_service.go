package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/internal/timegrid"
	pkgerrors "github.com/reinieltalplacido/classalign/pkg/errors"
)

var (
	ErrClassNotFound  = errors.New("课程不存在")
	ErrClassNotOwner  = pkgerrors.ErrNotOwner
	ErrInvalidDay     = errors.New("星期必须为周一至周五")
	ErrInvalidTime    = errors.New("时间不能为空且不超过 32 个字符")
	ErrInvalidSubject = errors.New("课程名不能为空且不超过 100 个字符")
)

const (
	maxTimeLen    = 32
	maxSubjectLen = 100
)

// ClassService 课程业务接口
// 所有变更操作都返回该用户重新查询的完整课表
type ClassService interface {
	List(ctx context.Context, userID string) ([]dto.ClassResponse, error)
	Create(ctx context.Context, userID string, req *dto.CreateClassRequest) ([]dto.ClassResponse, error)
	Update(ctx context.Context, userID, classID string, req *dto.UpdateClassRequest) ([]dto.ClassResponse, error)
	Delete(ctx context.Context, userID, classID string) ([]dto.ClassResponse, error)
	DeleteAll(ctx context.Context, userID string) (*dto.DeleteResultResponse, error)
	// 按课程名操作（助手使用），大小写不敏感
	RescheduleBySubject(ctx context.Context, userID, subject, day, timeText string) ([]dto.ClassResponse, error)
	DeleteBySubject(ctx context.Context, userID, subject string) (*dto.DeleteResultResponse, error)
}

type classService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, logger *zap.Logger) ClassService {
	return &classService{repo: repo, logger: logger}
}

func (s *classService) List(ctx context.Context, userID string) ([]dto.ClassResponse, error) {
	classes, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toClassResponses(classes), nil
}

func (s *classService) Create(ctx context.Context, userID string, req *dto.CreateClassRequest) ([]dto.ClassResponse, error) {
	class := &model.Class{
		UserID:    userID,
		Subject:   strings.TrimSpace(req.Subject),
		Day:       req.Day,
		Time:      strings.TrimSpace(req.Time),
		Room:      strings.TrimSpace(req.Room),
		Professor: strings.TrimSpace(req.Professor),
		Color:     strings.TrimSpace(req.Color),
	}
	if err := validateClass(class); err != nil {
		return nil, err
	}

	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("创建课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课程已创建",
		zap.String("class_id", class.ClassID),
		zap.String("day", class.Day),
		zap.String("time", class.Time),
	)
	return s.List(ctx, userID)
}

func (s *classService) Update(ctx context.Context, userID, classID string, req *dto.UpdateClassRequest) ([]dto.ClassResponse, error) {
	class, err := s.getOwned(ctx, userID, classID)
	if err != nil {
		return nil, err
	}

	if req.Subject != nil {
		class.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Day != nil {
		class.Day = *req.Day
	}
	if req.Time != nil {
		class.Time = strings.TrimSpace(*req.Time)
	}
	if req.Room != nil {
		class.Room = strings.TrimSpace(*req.Room)
	}
	if req.Professor != nil {
		class.Professor = strings.TrimSpace(*req.Professor)
	}
	if req.Color != nil {
		class.Color = strings.TrimSpace(*req.Color)
	}
	if err := validateClass(class); err != nil {
		return nil, err
	}

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新课程失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *classService) Delete(ctx context.Context, userID, classID string) ([]dto.ClassResponse, error) {
	if _, err := s.getOwned(ctx, userID, classID); err != nil {
		return nil, err
	}

	if _, err := s.repo.Class.DeleteByID(ctx, classID, userID); err != nil {
		s.logger.Error("删除课程失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *classService) DeleteAll(ctx context.Context, userID string) (*dto.DeleteResultResponse, error) {
	n, err := s.repo.Class.DeleteAllByUser(ctx, userID)
	if err != nil {
		s.logger.Error("清空课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("课表已清空", zap.String("user_id", userID), zap.Int64("deleted", n))
	return s.deleteResult(ctx, userID, n)
}

func (s *classService) RescheduleBySubject(ctx context.Context, userID, subject, day, timeText string) ([]dto.ClassResponse, error) {
	class, err := s.repo.Class.FindBySubject(ctx, userID, strings.TrimSpace(subject))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("按课程名查询失败", zap.Error(err))
		return nil, err
	}

	if day != "" {
		class.Day = day
	}
	if timeText != "" {
		class.Time = strings.TrimSpace(timeText)
	}
	if err := validateClass(class); err != nil {
		return nil, err
	}

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新课程失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *classService) DeleteBySubject(ctx context.Context, userID, subject string) (*dto.DeleteResultResponse, error) {
	n, err := s.repo.Class.DeleteBySubject(ctx, userID, strings.TrimSpace(subject))
	if err != nil {
		s.logger.Error("按课程名删除失败", zap.Error(err))
		return nil, err
	}
	if n == 0 {
		return nil, ErrClassNotFound
	}
	return s.deleteResult(ctx, userID, n)
}

// getOwned 查询课程并校验归属
func (s *classService) getOwned(ctx context.Context, userID, classID string) (*model.Class, error) {
	// class_id 列为 uuid 类型，非法 id 直接视为不存在，避免数据库报类型错误
	if _, err := uuid.Parse(classID); err != nil {
		return nil, ErrClassNotFound
	}
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询课程失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	if class.UserID != userID {
		return nil, ErrClassNotOwner
	}
	return class, nil
}

func (s *classService) deleteResult(ctx context.Context, userID string, n int64) (*dto.DeleteResultResponse, error) {
	classes, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.DeleteResultResponse{Deleted: n, Classes: classes}, nil
}

// validateClass 规范化星期并校验必填字段；时间文本只做宽松校验
func validateClass(class *model.Class) error {
	day, ok := timegrid.NormalizeWeekday(class.Day)
	if !ok {
		return ErrInvalidDay
	}
	class.Day = day

	if class.Subject == "" || len([]rune(class.Subject)) > maxSubjectLen {
		return ErrInvalidSubject
	}
	if class.Time == "" || len(class.Time) > maxTimeLen {
		return ErrInvalidTime
	}
	return nil
}

func toClassResponse(c *model.Class) dto.ClassResponse {
	return dto.ClassResponse{
		ID:        c.ClassID,
		Subject:   c.Subject,
		Day:       c.Day,
		Time:      c.Time,
		Room:      c.Room,
		Professor: c.Professor,
		Color:     c.Color,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func toClassResponses(classes []model.Class) []dto.ClassResponse {
	out := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		out = append(out, toClassResponse(&classes[i]))
	}
	return out
}
