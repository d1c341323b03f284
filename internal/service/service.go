package service

import (
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/config"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/pkg/jwt"
	"github.com/reinieltalplacido/classalign/pkg/llm"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Class     ClassService
	Calendar  CalendarService
	Assistant AssistantService
	Export    ExportService
	Import    ImportService
}

// NewService 创建 Service 聚合
// blacklist 与 llmClient 均可为 nil：前者关闭服务端登出，后者使助手只使用规则解析
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	llmClient llm.Client,
	logger *zap.Logger,
) *Service {
	classSvc := NewClassService(repo, logger)
	loc := cfg.Calendar.Location()

	var primary IntentTranslator
	if llmClient != nil {
		primary = NewLLMTranslator(llmClient)
	}
	translator := NewChainTranslator(primary, NewRegexTranslator(), cfg.Assistant.RegexFallback, logger)

	return &Service{
		Auth:      NewAuthService(repo, jwtMgr, blacklist, logger),
		Class:     classSvc,
		Calendar:  NewCalendarService(repo, logger),
		Assistant: NewAssistantService(repo, classSvc, translator, llmClient, logger),
		Export:    NewExportService(repo, loc, logger),
		Import:    NewImportService(repo, loc, logger),
	}
}
