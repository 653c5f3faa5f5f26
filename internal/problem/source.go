package problem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/jihopark/mathshorts/internal/content"
)

// GenerationError reports that the external generator was unreachable or
// returned malformed output. The caller substitutes a fallback problem.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("problem generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Source produces one math problem per request.
type Source interface {
	Generate(ctx context.Context, req content.ProblemRequest) (content.Problem, error)
}

// ModelSource generates problems with an LLM chat model. No retry is done
// here; retry and fallback policy belong to the workflow runner.
type ModelSource struct {
	model   model.ChatModel
	timeout time.Duration
}

// NewModelSource creates an LLM-backed problem source.
func NewModelSource(chatModel model.ChatModel, timeout time.Duration) *ModelSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ModelSource{model: chatModel, timeout: timeout}
}

// providerResponse mirrors the JSON contract of the generation provider.
type providerResponse struct {
	Problem  string `json:"problem"`
	Equation string `json:"equation"`
	Solution struct {
		Steps       []string `json:"steps"`
		Answer      string   `json:"answer"`
		Explanation string   `json:"explanation"`
	} `json:"solution"`
	Metadata struct {
		Difficulty   string   `json:"difficulty"`
		TimeEstimate int      `json:"timeEstimate"`
		Tags         []string `json:"tags"`
	} `json:"metadata"`
}

// Generate asks the model for a problem and parses the structured response.
func (s *ModelSource) Generate(ctx context.Context, req content.ProblemRequest) (content.Problem, error) {
	if s.model == nil {
		return content.Problem{}, &GenerationError{Cause: fmt.Errorf("no chat model configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []*schema.Message{
		{
			Role:    schema.System,
			Content: "You generate short math problems for educational video shorts. Respond with a single JSON object and nothing else.",
		},
		{
			Role:    schema.User,
			Content: buildPrompt(req),
		},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return content.Problem{}, &GenerationError{Cause: err}
	}

	parsed, err := parseResponse(resp.Content)
	if err != nil {
		return content.Problem{}, &GenerationError{Cause: err}
	}

	problem := content.Problem{
		StatementText: strings.TrimSpace(parsed.Problem),
		EquationText:  strings.TrimSpace(parsed.Equation),
		SolutionSteps: parsed.Solution.Steps,
		FinalAnswer:   strings.TrimSpace(parsed.Solution.Answer),
		Metadata: content.ProblemMetadata{
			Difficulty: parsed.Metadata.Difficulty,
			Tags:       parsed.Metadata.Tags,
		},
	}
	if problem.Metadata.Difficulty == "" {
		problem.Metadata.Difficulty = "basic"
	}
	if !problem.WellFormed() {
		return content.Problem{}, &GenerationError{Cause: fmt.Errorf("provider returned incomplete problem")}
	}

	slog.Debug("problem generated",
		"grade", req.Grade,
		"topic", req.Topic,
		"time_slot", req.TimeSlot,
		"steps", len(problem.SolutionSteps),
	)
	return problem, nil
}

func buildPrompt(req content.ProblemRequest) string {
	mood := "점심시간용"
	if req.TimeSlot == "morning" {
		mood = "활기찬 아침용"
	}
	return fmt.Sprintf(`중학교 %d학년 %s 문제를 생성해주세요.

조건:
- 시간대: %s (%s)
- 지역: %s
- 유튜브 쇼츠용 (15초)
- 실생활 연관
- 중학생 수준

JSON 형식으로 응답:
{
  "problem": "문제 내용",
  "equation": "핵심 수식",
  "solution": {
    "steps": ["풀이단계1", "풀이단계2", "풀이단계3"],
    "answer": "최종답",
    "explanation": "간단한 설명"
  },
  "metadata": {
    "difficulty": "basic|intermediate|advanced",
    "timeEstimate": 60,
    "tags": ["태그1", "태그2"]
  }
}`, req.Grade, req.Topic, req.TimeSlot, mood, req.Region)
}

// parseResponse extracts the JSON object from a model reply, tolerating
// markdown code fences and surrounding prose.
func parseResponse(raw string) (providerResponse, error) {
	var parsed providerResponse

	text := strings.TrimSpace(raw)
	if text == "" {
		return parsed, fmt.Errorf("empty provider response")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return parsed, fmt.Errorf("no JSON object in provider response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return parsed, fmt.Errorf("parse provider response: %w", err)
	}
	return parsed, nil
}
