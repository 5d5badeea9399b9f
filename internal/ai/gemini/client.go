package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/utils"
)

const (
	providerName      = "gemini"
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
	baseRetryDelay    = 2 * time.Second
	// maxQuotaDelay is the longest server-requested pause we wait out.
	maxQuotaDelay = 30 * time.Second
)

var (
	sleep = utils.WaitFor

	retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (g genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := g.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator sends a system instruction and one user message to Gemini and
// returns the text answer, retrying temporary API failures.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithFields(logger.OrNop(log), logger.CommonFields(providerName, model)...),
	}, nil
}

// GenerateContent returns the model's answer to message under the system instruction.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, system, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.logOrNop().Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, system, message string) (string, error) {
	var config *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: system}},
			},
		}
	}

	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	return responseText(resp)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) logOrNop() *zap.Logger {
	return logger.OrNop(g.logger)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay decides whether err is worth another attempt and how long to wait.
// Server errors back off linearly; quota errors are retried only when the
// requested pause is short.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch {
	case apiErr.Code >= http.StatusInternalServerError:
		return time.Duration(attempt) * baseRetryDelay, true
	case apiErr.Code == http.StatusTooManyRequests:
		delay, ok := requestedDelay(apiErr)
		if !ok {
			return time.Duration(attempt) * baseRetryDelay, true
		}
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	default:
		return 0, false
	}
}

func requestedDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	if m := retryAfterRe.FindStringSubmatch(apiErr.Message); m != nil {
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return time.Duration(seconds * float64(time.Second)), true
		}
	}

	return 0, false
}
