package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `你是一个事件提取器。从用户输入中提取结构化事件,输出JSON数组,不要输出其他内容。
每个事件包含: action(动作), target(对象), quantity(数量,可省略), unit(单位,可省略), confidence(0到1), day_offset(相对今天的天数,今天0,昨天-1), hour(0-23,未知可省略)。
示例输入: 我今天早上吃了3个苹果
示例输出: [{"action":"吃","target":"苹果","quantity":3,"unit":"个","confidence":0.95,"day_offset":0,"hour":8}]`

// SLMConfig configures the model-backed extractor. BaseURL points at any
// OpenAI-compatible endpoint, which includes local model servers.
type SLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SLMExtractor extracts candidate events with a small language model
type SLMExtractor struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewSLMExtractor creates the model-backed extractor
func NewSLMExtractor(cfg SLMConfig) *SLMExtractor {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &SLMExtractor{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Name implements Extractor
func (e *SLMExtractor) Name() string {
	return "slm"
}

// slmCandidate is the model's wire format. Relative time comes back as a day
// offset plus hour so the model never has to produce absolute timestamps.
type slmCandidate struct {
	Action     string   `json:"action"`
	Target     string   `json:"target"`
	Quantity   *float64 `json:"quantity,omitempty"`
	Unit       *string  `json:"unit,omitempty"`
	Confidence float64  `json:"confidence"`
	DayOffset  int      `json:"day_offset"`
	Hour       *int     `json:"hour,omitempty"`
}

// Extract implements Extractor
func (e *SLMExtractor) Extract(ctx context.Context, content string, now time.Time) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(content),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("model extraction failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	raw := extractJSONArray(completion.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("model returned no JSON array")
	}

	var parsed []slmCandidate
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed))
	for _, c := range parsed {
		timestamp := now.AddDate(0, 0, c.DayOffset)
		if c.Hour != nil && *c.Hour >= 0 && *c.Hour <= 23 {
			timestamp = time.Date(
				timestamp.Year(), timestamp.Month(), timestamp.Day(),
				*c.Hour, 0, 0, 0, timestamp.Location(),
			)
		}
		candidates = append(candidates, Candidate{
			Action:     c.Action,
			Target:     c.Target,
			Quantity:   c.Quantity,
			Unit:       c.Unit,
			Confidence: c.Confidence,
			Timestamp:  &timestamp,
		})
	}

	return candidates, nil
}

// extractJSONArray pulls the first JSON array out of the model output, which
// may be wrapped in prose or a code fence despite the prompt
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
