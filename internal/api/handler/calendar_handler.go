package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/internal/service"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

// CalendarHandler 周视图 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// GetCalendar 周视图网格
// GET /api/v1/calendar
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cal, err := h.calendarSvc.GetCalendar(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, cal)
}
