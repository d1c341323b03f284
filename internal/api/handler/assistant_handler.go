package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/service"
	pkgerrors "github.com/reinieltalplacido/classalign/pkg/errors"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

// AssistantHandler 助手模块 HTTP / WebSocket 处理器
type AssistantHandler struct {
	assistantSvc service.AssistantService
	origins      map[string]bool
	logger       *zap.Logger
}

// NewAssistantHandler 创建 AssistantHandler
// allowOrigins 同时用于 WebSocket 握手的 Origin 校验
func NewAssistantHandler(assistantSvc service.AssistantService, allowOrigins []string, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistantSvc: assistantSvc,
		origins:      originSet(allowOrigins),
		logger:       logger,
	}
}

// Action 自然语言修改课表
// POST /api/v1/assistant/action
func (h *AssistantHandler) Action(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assistantSvc.Act(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		h.handleAssistantError(c, err)
		return
	}

	response.OK(c, result)
}

// Suggest 排课建议
// POST /api/v1/assistant/suggest
func (h *AssistantHandler) Suggest(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assistantSvc.Suggest(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		h.handleAssistantError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAssistantError 统一处理助手模块业务错误
func (h *AssistantHandler) handleAssistantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrLLMUnavailable):
		response.ServiceUnavailable(c, 17001, "语言模型暂不可用，请稍后再试")
	default:
		response.InternalError(c)
	}
}

// assistantErrorText WebSocket 回复中的错误文本
func assistantErrorText(err error) string {
	if errors.Is(err, pkgerrors.ErrLLMUnavailable) {
		return "语言模型暂不可用，请稍后再试"
	}
	return "服务器内部错误"
}
