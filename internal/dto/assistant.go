package dto

import "encoding/json"

// ── 助手模块 DTO ──

// AssistantRequest 助手请求
type AssistantRequest struct {
	Prompt string `json:"prompt" binding:"required,min=1,max=500"`
}

// IntentResponse 解析得到的意图
type IntentResponse struct {
	Action  string `json:"action"`
	Subject string `json:"subject,omitempty"`
	Day     string `json:"day,omitempty"`
	Time    string `json:"time,omitempty"`
	Source  string `json:"source"` // "llm" | "rules"
}

// AssistantActionResponse 执行指令后的回复与最新课表
type AssistantActionResponse struct {
	Reply    string          `json:"reply"`
	Intent   IntentResponse  `json:"intent"`
	Schedule []ClassResponse `json:"schedule"`
}

// SuggestResponse 排课建议
type SuggestResponse struct {
	Reply string `json:"reply"`
}

// ── WebSocket 消息 ──

// WSMessage 客户端发来的消息 {event, data}
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSReply 服务端推送的消息
type WSReply struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}
