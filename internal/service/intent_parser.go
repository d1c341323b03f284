package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/timegrid"
	pkgerrors "github.com/reinieltalplacido/classalign/pkg/errors"
	"github.com/reinieltalplacido/classalign/pkg/llm"
)

// Action 助手可执行的操作
type Action string

const (
	ActionAdd       Action = "add"
	ActionEdit      Action = "edit"
	ActionDelete    Action = "delete"
	ActionDeleteAll Action = "delete_all"
	ActionUnknown   Action = "unknown"
)

const (
	sourceLLM   = "llm"
	sourceRules = "rules"
)

// Intent 从自然语言中解析出的课表操作
type Intent struct {
	Action  Action `json:"action"`
	Subject string `json:"subject"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Source  string `json:"-"`
}

// IntentTranslator 自然语言 → Intent
// subjects 为用户当前已有的课程名，供模型对齐名称
type IntentTranslator interface {
	Translate(ctx context.Context, prompt string, subjects []string) (*Intent, error)
}

// ── 规则解析 ──

const clockPhrase = `\d{1,2}(?::\d{2})?\s*(?:[ap]m)?`

var (
	deleteAllPattern = regexp.MustCompile(`(?i)\b(?:delete|remove|clear)\s+all(?:\s+of)?(?:\s+my)?\s+classes\b`)
	addPattern       = regexp.MustCompile(`(?i)\badd (?:an? )?(.+?) class on (\w+) at (` + clockPhrase + `(?:\s*-\s*` + clockPhrase + `)?)`)
	editPattern      = regexp.MustCompile(`(?i)\b(?:edit|move|change) (.+?) class (?:to|on) (\w+) at (` + clockPhrase + `(?:\s*-\s*` + clockPhrase + `)?)`)
	editBarePattern  = regexp.MustCompile(`(?i)\bedit (.+?) class\b`)
	deletePattern    = regexp.MustCompile(`(?i)\b(?:delete|remove) (.+?) class\b`)
)

type regexTranslator struct{}

// NewRegexTranslator 基于固定句式的解析器，不依赖外部服务
func NewRegexTranslator() IntentTranslator {
	return regexTranslator{}
}

func (regexTranslator) Translate(_ context.Context, prompt string, _ []string) (*Intent, error) {
	prompt = strings.TrimSpace(prompt)

	if deleteAllPattern.MatchString(prompt) {
		return &Intent{Action: ActionDeleteAll, Source: sourceRules}, nil
	}
	if m := addPattern.FindStringSubmatch(prompt); m != nil {
		return &Intent{
			Action:  ActionAdd,
			Subject: cleanSubject(m[1]),
			Day:     normalizeIntentDay(m[2]),
			Time:    timegrid.NormalizeTime(m[3]),
			Source:  sourceRules,
		}, nil
	}
	if m := editPattern.FindStringSubmatch(prompt); m != nil {
		return &Intent{
			Action:  ActionEdit,
			Subject: cleanSubject(m[1]),
			Day:     normalizeIntentDay(m[2]),
			Time:    timegrid.NormalizeTime(m[3]),
			Source:  sourceRules,
		}, nil
	}
	if m := editBarePattern.FindStringSubmatch(prompt); m != nil {
		return &Intent{Action: ActionEdit, Subject: cleanSubject(m[1]), Source: sourceRules}, nil
	}
	if m := deletePattern.FindStringSubmatch(prompt); m != nil {
		return &Intent{Action: ActionDelete, Subject: cleanSubject(m[1]), Source: sourceRules}, nil
	}
	return &Intent{Action: ActionUnknown, Source: sourceRules}, nil
}

// ── 模型解析 ──

const intentSystemPrompt = `You convert class scheduling requests into JSON.
Reply with exactly one JSON object and nothing else:
{"action": "add" | "edit" | "delete" | "delete_all" | "unknown", "subject": string, "day": string, "time": string}
- day is one of Monday, Tuesday, Wednesday, Thursday, Friday.
- time uses 24-hour "HH:MM" or "HH:MM - HH:MM".
- For edit, day and time are the new values.
- When the user refers to an existing class, reuse its exact subject name.
- Use "unknown" when the request is not about adding, moving or deleting classes.`

type llmTranslator struct {
	client llm.Client
}

// NewLLMTranslator 基于语言模型的解析器
func NewLLMTranslator(client llm.Client) IntentTranslator {
	return &llmTranslator{client: client}
}

func (t *llmTranslator) Translate(ctx context.Context, prompt string, subjects []string) (*Intent, error) {
	userPrompt := prompt
	if len(subjects) > 0 {
		userPrompt = fmt.Sprintf("%s\n\nExisting classes: %s", prompt, strings.Join(subjects, ", "))
	}

	raw, err := t.client.Generate(ctx, llm.Request{
		System: intentSystemPrompt,
		Prompt: userPrompt,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("解析模型返回的意图失败: %w", err)
	}

	intent.Action = Action(strings.ToLower(strings.TrimSpace(string(intent.Action))))
	switch intent.Action {
	case ActionAdd, ActionEdit, ActionDelete, ActionDeleteAll:
	default:
		intent.Action = ActionUnknown
	}
	intent.Subject = cleanSubject(intent.Subject)
	intent.Day = normalizeIntentDay(intent.Day)
	intent.Time = timegrid.NormalizeTime(intent.Time)
	intent.Source = sourceLLM
	return &intent, nil
}

// ── 组合：模型优先，失败时退回规则 ──

type chainTranslator struct {
	primary  IntentTranslator // 可为 nil
	fallback IntentTranslator
	// fallbackOnError 为 false 时模型失败直接返回 ErrLLMUnavailable
	fallbackOnError bool
	logger          *zap.Logger
}

// NewChainTranslator 组合解析器；primary 为 nil 时只使用规则解析
func NewChainTranslator(primary, fallback IntentTranslator, fallbackOnError bool, logger *zap.Logger) IntentTranslator {
	return &chainTranslator{
		primary:         primary,
		fallback:        fallback,
		fallbackOnError: fallbackOnError,
		logger:          logger,
	}
}

func (c *chainTranslator) Translate(ctx context.Context, prompt string, subjects []string) (*Intent, error) {
	if c.primary == nil {
		return c.fallback.Translate(ctx, prompt, subjects)
	}

	intent, err := c.primary.Translate(ctx, prompt, subjects)
	if err != nil {
		if !c.fallbackOnError {
			return nil, fmt.Errorf("%w: %v", pkgerrors.ErrLLMUnavailable, err)
		}
		c.logger.Warn("模型解析失败，改用规则解析", zap.Error(err))
		return c.fallback.Translate(ctx, prompt, subjects)
	}

	// 模型无法识别时再尝试固定句式
	if intent.Action == ActionUnknown {
		if ruled, rerr := c.fallback.Translate(ctx, prompt, subjects); rerr == nil && ruled.Action != ActionUnknown {
			return ruled, nil
		}
	}
	return intent, nil
}

// cleanSubject 去除首尾空白、句号与前置的 "the"/"my"
func cleanSubject(s string) string {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "."))
	for _, prefix := range []string{"the ", "my "} {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// normalizeIntentDay 能识别的星期规范为标题大小写，其余原样保留，由后续校验给出提示
func normalizeIntentDay(s string) string {
	if day, ok := timegrid.NormalizeWeekday(s); ok {
		return day
	}
	return strings.TrimSpace(s)
}
