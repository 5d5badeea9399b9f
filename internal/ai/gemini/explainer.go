package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	defaultTone             = "Friendly"
	maxUserInstructionRunes = 500
)

// PromptOverrides customizes the system prompt.
type PromptOverrides struct {
	Tone             string
	UserInstructions string
}

// Explainer asks Gemini to explain a ranking result.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

func NewExplainer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Explainer{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) SetPromptOverrides(overrides PromptOverrides) {
	e.overrides = overrides
}

type explainPayload struct {
	Candidate candidatePayload         `json:"candidate"`
	Job       recommend.Recommendation `json:"job"`
}

type candidatePayload struct {
	Skills          []string `json:"skills"`
	TotalExperience float64  `json:"total_experience"`
	Location        string   `json:"location,omitempty"`
	ExpectedSalary  *float64 `json:"expected_salary,omitempty"`
	NoticePeriod    *int     `json:"notice_period_days,omitempty"`
}

// Explain returns a one-paragraph rationale for job.
func (e *Explainer) Explain(ctx context.Context, candidate recommend.Candidate, job recommend.ScoredJob) (string, error) {
	if e.generator == nil {
		return "", errors.New("gemini generator is required")
	}

	rec := recommend.Recommendations([]recommend.ScoredJob{job})[0]
	rec.Explanation = ""

	message, err := json.MarshalIndent(explainPayload{
		Candidate: candidatePayload{
			Skills:          candidate.Skills,
			TotalExperience: candidate.TotalExperience,
			Location:        candidate.Location,
			ExpectedSalary:  candidate.ExpectedSalary,
			NoticePeriod:    candidate.NoticePeriod,
		},
		Job: rec,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal explain payload: %w", err)
	}

	system := buildPrompt(e.overrides)
	fields := logger.JobFields(job.Job.Title, job.Job.Company)

	e.logger.Debug("gemini explain request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(system)+len(message)),
		zap.String("message_preview", utils.TruncateForLog(string(message), e.maxLogLen)),
	)...)

	raw, err := e.generator.GenerateContent(ctx, system, string(message))
	if err != nil {
		return "", err
	}

	e.logger.Debug("gemini explain response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)...)

	return parseResponse(raw)
}

func buildPrompt(overrides PromptOverrides) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Explain the ranking.\n- Tone: {{TONE}}\n- User instructions:\n{{USER_INSTRUCTIONS}}\nReply with JSON: {\"explanation\": \"...\"}"
	}

	tone := sanitizeSingleLine(overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}

	prompt := strings.ReplaceAll(template, "{{TONE}}", tone)
	prompt = strings.ReplaceAll(prompt, "{{USER_INSTRUCTIONS}}", sanitizeInstructions(overrides.UserInstructions))
	return prompt
}

// sanitizeSingleLine collapses whitespace and neutralizes section markers.
func sanitizeSingleLine(s string) string {
	s = neutralizeMarkers(s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeInstructions renders user instructions as an indented list, one
// item per non-empty line, capped in length.
func sanitizeInstructions(s string) string {
	s = neutralizeMarkers(strings.TrimSpace(s))
	if runes := []rune(s); len(runes) > maxUserInstructionRunes {
		s = string(runes[:maxUserInstructionRunes])
	}

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, "  - "+line)
		}
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func neutralizeMarkers(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func parseResponse(raw string) (string, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return "", errors.New("gemini response is empty")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		// models sometimes ignore the schema; plain prose is still usable
		if strings.HasPrefix(cleaned, "{") {
			return "", fmt.Errorf("parse gemini response: %w", err)
		}
		return cleaned, nil
	}

	explanation := coerceString(data["explanation"])
	if explanation == "" {
		return "", errors.New("gemini response has no explanation")
	}
	return explanation, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
