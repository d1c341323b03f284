package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/internal/timegrid"
)

// CalendarService 周视图业务接口
type CalendarService interface {
	GetCalendar(ctx context.Context, userID string) (*dto.CalendarResponse, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func (s *calendarService) GetCalendar(ctx context.Context, userID string) (*dto.CalendarResponse, error) {
	classes, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	grid := timegrid.Build(classes)
	if hidden := grid.Hidden(); len(hidden) > 0 {
		s.logger.Debug("部分课程未出现在周视图中",
			zap.String("user_id", userID),
			zap.Int("hidden", len(hidden)),
		)
	}
	return buildCalendar(grid, classes), nil
}

// buildCalendar 将网格转换为响应结构
func buildCalendar(grid *timegrid.Grid[model.Class], classes []model.Class) *dto.CalendarResponse {
	start, end := grid.Window()
	resp := &dto.CalendarResponse{
		Days:   append([]string(nil), timegrid.Weekdays...),
		Rows:   grid.Rows(),
		Hidden: make([]dto.HiddenClassResponse, 0),
		Stats:  calendarStats(classes),
		Window: dto.CalendarWindowResponse{Start: start.String(), End: end.String()},
	}

	cells := grid.Cells()
	resp.Cells = make([][]*dto.ClassResponse, len(cells))
	for r, row := range cells {
		resp.Cells[r] = make([]*dto.ClassResponse, len(row))
		for d, c := range row {
			if c == nil {
				continue
			}
			cr := toClassResponse(c)
			resp.Cells[r][d] = &cr
		}
	}

	for _, h := range grid.Hidden() {
		resp.Hidden = append(resp.Hidden, dto.HiddenClassResponse{
			Class:  toClassResponse(&h.Item),
			Reason: string(h.Reason),
		})
	}
	return resp
}

// calendarStats 统计课程总数、最忙的一天、不同课程数与排课总时长
// 总时长只统计 "HH:MM - HH:MM" 格式且结束晚于开始的课程
func calendarStats(classes []model.Class) dto.CalendarStatsResponse {
	stats := dto.CalendarStatsResponse{TotalClasses: len(classes)}

	perDay := make(map[string]int, len(timegrid.Weekdays))
	subjects := make(map[string]struct{})
	for _, c := range classes {
		perDay[c.Day]++
		subjects[c.Subject] = struct{}{}
		if start, end, ok := timegrid.ParseRange(c.Time); ok && end > start {
			stats.ScheduledMinutes += int(end - start)
		}
	}
	stats.DistinctSubjects = len(subjects)

	best := 0
	for _, d := range timegrid.Weekdays {
		if perDay[d] > best {
			best = perDay[d]
			stats.BusiestDay = d
		}
	}
	return stats
}
