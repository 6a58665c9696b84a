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

	"github.com/spigell/rallypoint/internal/logger"
	"github.com/spigell/rallypoint/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
	providerName = "gemini"

	defaultMaxRetries = 2
	baseBackoff       = 500 * time.Millisecond
	// Quota errors asking to wait longer than this are not retried.
	maxQuotaDelay = 10 * time.Second
)

var wait = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

// modelsAPI is the subset of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models     modelsAPI
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
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
		model = DefaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

// Complete sends the prompt to Gemini, asking for a JSON response, and returns
// the concatenated text of the first candidates.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err == nil {
			return responseText(resp)
		}

		lastErr = err
		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries || ctx.Err() != nil {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

// Probe fetches the configured model to verify the key and connectivity.
func (g *Generator) Probe(ctx context.Context) error {
	if g == nil || g.models == nil {
		return errors.New("gemini generator is not initialized")
	}

	if _, err := g.models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", g.model, err)
	}

	return nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
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

// retryDelay decides whether err is temporary and how long to wait before the
// next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return 0, false
	}

	backoff := baseBackoff * time.Duration(1<<(attempt-1))

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); m != nil {
			seconds, parseErr := strconv.ParseFloat(m[1], 64)
			if parseErr == nil {
				delay := time.Duration(seconds * float64(time.Second))
				if delay > maxQuotaDelay {
					return 0, false
				}
				return delay, true
			}
		}
		return backoff, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}
