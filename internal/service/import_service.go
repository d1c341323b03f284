package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
)

// ImportService 日历导入业务接口
type ImportService interface {
	// ImportICS 将 ICS 事件追加到课表，已存在的同名同时段课程跳过
	ImportICS(ctx context.Context, userID string, reader io.Reader) (*dto.ImportResultResponse, error)
}

type importService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ImportService {
	return &importService{repo: repo, loc: loc, logger: logger}
}

func (s *importService) ImportICS(ctx context.Context, userID string, reader io.Reader) (*dto.ImportResultResponse, error) {
	parsed, skipped, err := ParseICS(reader, userID, s.loc)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[classKey(c.Subject, c.Day, c.Time)] = true
	}

	toCreate := make([]model.Class, 0, len(parsed))
	for _, c := range parsed {
		if seen[classKey(c.Subject, c.Day, c.Time)] {
			skipped++
			continue
		}
		toCreate = append(toCreate, c)
	}

	if err := s.repo.Class.CreateBatch(ctx, toCreate); err != nil {
		s.logger.Error("导入课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ICS 导入完成",
		zap.String("user_id", userID),
		zap.Int("imported", len(toCreate)),
		zap.Int("skipped", skipped),
	)

	classes, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ImportResultResponse{
		Imported: len(toCreate),
		Skipped:  skipped,
		Classes:  toClassResponses(classes),
	}, nil
}
