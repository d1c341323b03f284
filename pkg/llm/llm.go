// Package llm 封装 Gemini 文本生成，供课表助手解析指令与生成建议。
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/reinieltalplacido/classalign/config"
)

// ErrEmptyResponse 模型未返回任何文本
var ErrEmptyResponse = errors.New("模型返回内容为空")

// Request 一次生成请求
type Request struct {
	System string // 系统指令
	Prompt string
	JSON   bool // 要求模型只输出 JSON
}

// Client 文本生成接口
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

// geminiClient 基于 generative-ai-go 的实现
type geminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
	logger      *zap.Logger
}

// NewGeminiClient 创建 Gemini 客户端；调用方需在未配置 API Key 时跳过
func NewGeminiClient(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}

	logger.Info("Gemini 客户端初始化成功", zap.String("model", cfg.Model))

	return &geminiClient{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (g *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// GenerativeModel 携带配置状态，每次请求单独创建
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		g.logger.Warn("Gemini 调用失败", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return "", fmt.Errorf("Gemini 调用失败: %w", err)
	}

	text := collectText(resp)
	g.logger.Debug("Gemini 调用完成",
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	if req.JSON {
		clean := ExtractJSON(text)
		if clean == "" {
			return "", fmt.Errorf("模型返回的 JSON 无效: %q", truncate(text, 200))
		}
		return clean, nil
	}
	return text, nil
}

func (g *geminiClient) Close() error {
	return g.client.Close()
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

// ExtractJSON 从模型输出中取出 JSON 对象：
// 先剥离 ``` 代码块，再截取第一个 '{' 到最后一个 '}'；结果不是合法 JSON 时返回空串
func ExtractJSON(raw string) string {
	if i := strings.Index(raw, "```json"); i != -1 {
		raw = raw[i+len("```json"):]
		if j := strings.Index(raw, "```"); j != -1 {
			raw = raw[:j]
		}
	} else if i := strings.Index(raw, "```"); i != -1 {
		raw = raw[i+3:]
		if j := strings.Index(raw, "```"); j != -1 {
			raw = raw[:j]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return ""
	}

	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return ""
	}
	return candidate
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
