package handler

import (
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/config"
	"github.com/reinieltalplacido/classalign/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Class     *ClassHandler
	Calendar  *CalendarHandler
	Assistant *AssistantHandler
	Export    *ExportHandler
	Import    *ImportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth, &cfg.Auth),
		Class:     NewClassHandler(svc.Class),
		Calendar:  NewCalendarHandler(svc.Calendar),
		Assistant: NewAssistantHandler(svc.Assistant, cfg.Server.CORS.AllowOrigins, logger),
		Export:    NewExportHandler(svc.Export),
		Import:    NewImportHandler(svc.Import),
	}
}
