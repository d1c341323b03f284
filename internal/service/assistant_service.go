package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/internal/timegrid"
	"github.com/reinieltalplacido/classalign/pkg/llm"
)

const (
	replyNotUnderstood = "Sorry, I couldn't understand your request."
	replyWeekdaysOnly  = "Sorry, I can only schedule classes from Monday to Friday."
)

const suggestSystemPrompt = `You are an expert class schedule generator and assistant.
- When asked, create weekly class schedules for students, ensuring no time or room conflicts.
- Distribute subjects efficiently across the week.
- If the user asks for a schedule (e.g., "Make me a schedule for 5 subjects"), generate a realistic timetable.
- If the user provides a current schedule, analyze and suggest improvements.
- Always respond in clear, organized text or tables.`

// AssistantService 课表助手业务接口
type AssistantService interface {
	// Act 解析指令并修改课表，回复文本面向最终用户
	Act(ctx context.Context, userID, prompt string) (*dto.AssistantActionResponse, error)
	// Suggest 基于当前课表给出建议；未配置模型时返回确定性的课表概况
	Suggest(ctx context.Context, userID, prompt string) (*dto.SuggestResponse, error)
}

type assistantService struct {
	repo       *repository.Repository
	classes    ClassService
	translator IntentTranslator
	llm        llm.Client // 可为 nil
	logger     *zap.Logger
}

// NewAssistantService 创建 AssistantService 实例
func NewAssistantService(
	repo *repository.Repository,
	classes ClassService,
	translator IntentTranslator,
	llmClient llm.Client,
	logger *zap.Logger,
) AssistantService {
	return &assistantService{
		repo:       repo,
		classes:    classes,
		translator: translator,
		llm:        llmClient,
		logger:     logger,
	}
}

func (s *assistantService) Act(ctx context.Context, userID, prompt string) (*dto.AssistantActionResponse, error) {
	current, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	intent, err := s.translator.Translate(ctx, prompt, distinctSubjects(current))
	if err != nil {
		return nil, err
	}

	s.logger.Info("助手指令已解析",
		zap.String("user_id", userID),
		zap.String("action", string(intent.Action)),
		zap.String("source", intent.Source),
	)

	reply, schedule, err := s.apply(ctx, userID, intent)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		schedule = toClassResponses(current)
	}

	return &dto.AssistantActionResponse{
		Reply: reply,
		Intent: dto.IntentResponse{
			Action:  string(intent.Action),
			Subject: intent.Subject,
			Day:     intent.Day,
			Time:    intent.Time,
			Source:  intent.Source,
		},
		Schedule: schedule,
	}, nil
}

// apply 执行意图；schedule 为 nil 表示课表未变化
func (s *assistantService) apply(ctx context.Context, userID string, intent *Intent) (string, []dto.ClassResponse, error) {
	switch intent.Action {
	case ActionAdd:
		if intent.Subject == "" || intent.Day == "" || intent.Time == "" {
			return "Please tell me the subject, day and time of the class to add.", nil, nil
		}
		schedule, err := s.classes.Create(ctx, userID, &dto.CreateClassRequest{
			Subject: intent.Subject,
			Day:     intent.Day,
			Time:    intent.Time,
		})
		if reply, ok := validationReply(err); ok {
			return reply, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Added %s class on %s at %s.", intent.Subject, intent.Day, intent.Time), schedule, nil

	case ActionEdit:
		if intent.Subject == "" {
			return replyNotUnderstood, nil, nil
		}
		if intent.Day == "" && intent.Time == "" {
			return fmt.Sprintf("Tell me the new day and time for the %s class.", intent.Subject), nil, nil
		}
		schedule, err := s.classes.RescheduleBySubject(ctx, userID, intent.Subject, intent.Day, intent.Time)
		if errors.Is(err, ErrClassNotFound) {
			return fmt.Sprintf("I couldn't find a %s class in your schedule.", intent.Subject), nil, nil
		}
		if reply, ok := validationReply(err); ok {
			return reply, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Moved %s class to %s.", intent.Subject, describeSlot(intent.Day, intent.Time)), schedule, nil

	case ActionDelete:
		if intent.Subject == "" {
			return replyNotUnderstood, nil, nil
		}
		result, err := s.classes.DeleteBySubject(ctx, userID, intent.Subject)
		if errors.Is(err, ErrClassNotFound) {
			return fmt.Sprintf("I couldn't find a %s class in your schedule.", intent.Subject), nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Deleted %s class.", intent.Subject), result.Classes, nil

	case ActionDeleteAll:
		result, err := s.classes.DeleteAll(ctx, userID)
		if err != nil {
			return "", nil, err
		}
		if result.Deleted == 0 {
			return "Your schedule is already empty.", result.Classes, nil
		}
		return fmt.Sprintf("Deleted all %s.", plural(int(result.Deleted), "class", "classes")), result.Classes, nil
	}

	return replyNotUnderstood, nil, nil
}

func (s *assistantService) Suggest(ctx context.Context, userID, prompt string) (*dto.SuggestResponse, error) {
	classes, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if s.llm == nil {
		return &dto.SuggestResponse{Reply: summarizeSchedule(classes)}, nil
	}

	userPrompt := prompt
	if len(classes) > 0 {
		scheduleJSON, err := json.MarshalIndent(scheduleForPrompt(classes), "", "  ")
		if err != nil {
			return nil, err
		}
		userPrompt = fmt.Sprintf("%s\n\nHere is my current schedule:\n%s", prompt, scheduleJSON)
	}

	reply, err := s.llm.Generate(ctx, llm.Request{System: suggestSystemPrompt, Prompt: userPrompt})
	if err != nil {
		s.logger.Warn("模型生成建议失败，返回课表概况", zap.Error(err))
		return &dto.SuggestResponse{Reply: summarizeSchedule(classes)}, nil
	}
	return &dto.SuggestResponse{Reply: strings.TrimSpace(reply)}, nil
}

// validationReply 将课程校验错误转换为面向用户的回复
func validationReply(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidDay):
		return replyWeekdaysOnly, true
	case errors.Is(err, ErrInvalidTime):
		return "Please give the class time as HH:MM - HH:MM.", true
	case errors.Is(err, ErrInvalidSubject):
		return "The subject name must be between 1 and 100 characters.", true
	}
	return "", false
}

func describeSlot(day, timeText string) string {
	switch {
	case day != "" && timeText != "":
		return day + " at " + timeText
	case day != "":
		return day
	default:
		return timeText
	}
}

type promptClass struct {
	Subject string `json:"subject"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Room    string `json:"room,omitempty"`
}

func scheduleForPrompt(classes []model.Class) []promptClass {
	out := make([]promptClass, 0, len(classes))
	for _, c := range classes {
		out = append(out, promptClass{Subject: c.Subject, Day: c.Day, Time: c.Time, Room: c.Room})
	}
	return out
}

func distinctSubjects(classes []model.Class) []string {
	seen := make(map[string]struct{}, len(classes))
	var out []string
	for _, c := range classes {
		key := strings.ToLower(c.Subject)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c.Subject)
	}
	return out
}

// summarizeSchedule 不依赖模型的课表概况
func summarizeSchedule(classes []model.Class) string {
	if len(classes) == 0 {
		return "Your schedule is empty. Try \"add Math class on Monday at 9:00 - 10:30\" to get started."
	}

	stats := calendarStats(classes)
	var b strings.Builder
	fmt.Fprintf(&b, "You have %s across %s.",
		plural(stats.TotalClasses, "class", "classes"),
		plural(stats.DistinctSubjects, "subject", "subjects"),
	)
	if stats.BusiestDay != "" {
		fmt.Fprintf(&b, " Your busiest day is %s.", stats.BusiestDay)
	}
	if stats.ScheduledMinutes > 0 {
		fmt.Fprintf(&b, " Scheduled time per week: %dh %02dm.", stats.ScheduledMinutes/60, stats.ScheduledMinutes%60)
	}

	hidden := timegrid.Build(classes).Hidden()
	if len(hidden) > 0 {
		names := make([]string, 0, len(hidden))
		for _, h := range hidden {
			names = append(names, fmt.Sprintf("%s (%s)", h.Item.Subject, hiddenReasonText(h.Reason)))
		}
		fmt.Fprintf(&b, " These classes are not shown on the weekly grid: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func hiddenReasonText(r timegrid.HiddenReason) string {
	switch r {
	case timegrid.HiddenMalformedTime:
		return "time not recognised"
	case timegrid.HiddenOffGrid:
		return "starts between grid rows"
	case timegrid.HiddenShadowed:
		return "overlaps another class"
	case timegrid.HiddenUnknownDay:
		return "not on a weekday"
	}
	return string(r)
}
