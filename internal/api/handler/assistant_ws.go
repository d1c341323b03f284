package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/dto"
)

// WebSocket 事件
const (
	wsEventPrompt        = "prompt"
	wsEventSuggest       = "suggest"
	wsEventPromptResult  = "prompt_result"
	wsEventSuggestResult = "suggest_result"
	wsEventError         = "error"

	wsReadLimit    = 8 << 10
	wsCloseTimeout = time.Second
)

func originSet(origins []string) map[string]bool {
	m := make(map[string]bool, len(origins))
	for _, o := range origins {
		m[strings.TrimRight(o, "/")] = true
	}
	return m
}

// checkOrigin 非浏览器客户端不带 Origin，直接放行
func (h *AssistantHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.origins[origin]
}

// Chat 助手对话通道
// GET /api/v1/assistant/ws?token=xxx
//
// 客户端消息: {"event": "prompt" | "suggest", "data": {"prompt": "..."}}
// 服务端回复: {"event": "prompt_result" | "suggest_result" | "error", "data": ..., "error": "..."}
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 握手失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	// 握手只校验一次令牌，连接寿命不得超过令牌有效期
	if _, _, exp := tokenFromContext(c); !exp.IsZero() {
		timer := time.AfterFunc(time.Until(exp), func() {
			h.logger.Info("Token 已过期，关闭助手连接", zap.String("user_id", userID))
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsCloseTimeout))
			conn.Close()
		})
		defer timer.Stop()
	}

	h.logger.Info("助手连接建立", zap.String("user_id", userID))

	ctx := c.Request.Context()
	for {
		var msg dto.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("读取 WebSocket 消息失败", zap.String("user_id", userID), zap.Error(err))
			}
			break
		}

		reply := h.dispatch(c, userID, msg)
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("写入 WebSocket 消息失败", zap.String("user_id", userID), zap.Error(err))
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	h.logger.Info("助手连接关闭", zap.String("user_id", userID))
}

func (h *AssistantHandler) dispatch(c *gin.Context, userID string, msg dto.WSMessage) dto.WSReply {
	if msg.Event != wsEventPrompt && msg.Event != wsEventSuggest {
		return dto.WSReply{Event: wsEventError, Error: "未知事件类型"}
	}

	var req dto.AssistantRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return dto.WSReply{Event: wsEventError, Error: "消息格式无效"}
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return dto.WSReply{Event: wsEventError, Error: "参数校验失败"}
	}

	ctx := c.Request.Context()
	if msg.Event == wsEventSuggest {
		result, err := h.assistantSvc.Suggest(ctx, userID, req.Prompt)
		if err != nil {
			return dto.WSReply{Event: wsEventError, Error: assistantErrorText(err)}
		}
		return dto.WSReply{Event: wsEventSuggestResult, Data: result}
	}

	result, err := h.assistantSvc.Act(ctx, userID, req.Prompt)
	if err != nil {
		return dto.WSReply{Event: wsEventError, Error: assistantErrorText(err)}
	}
	return dto.WSReply{Event: wsEventPromptResult, Data: result}
}
