package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu       sync.Mutex
	queue    []fakeResponse
	calls    []callRecord
	getErr   error
	gotModel string
}

type callRecord struct {
	model    string
	config   *genai.GenerateContentConfig
	contents []*genai.Content
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, callRecord{model: model, config: config, contents: contents})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func (f *fakeModels) Get(_ context.Context, model string, _ *genai.GetModelConfig) (*genai.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotModel = model
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &genai.Model{Name: "models/" + model}, nil
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &slept
}

func TestGeneratorComplete(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"specialties":`, ` ["pilot"]}`), nil)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 2, logger: zap.NewNop()}

	output, err := g.Complete(context.Background(), "  describe the job  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "{\"specialties\":\n[\"pilot\"]}" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config == nil || call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response mime type")
	}
	if got := call.contents[0].Parts[0].Text; got != "describe the job" {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	slept := stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 2, logger: zap.NewNop()}

	output, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
	if len(*slept) != 1 || (*slept)[0] != baseBackoff {
		t.Fatalf("expected a single backoff of %s, got %v", baseBackoff, *slept)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 2, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetry(t *testing.T) {
	t.Run("long quota delay", func(t *testing.T) {
		stubWait(t)

		models := &fakeModels{}
		models.enqueue(nil, genai.APIError{
			Code:    http.StatusTooManyRequests,
			Status:  "RESOURCE_EXHAUSTED",
			Message: "quota exhausted, retry after 60 seconds",
		})

		g := &Generator{models: models, model: "gemini-test", maxRetries: 3, logger: zap.NewNop()}

		if _, err := g.Complete(context.Background(), "prompt"); err == nil {
			t.Fatal("expected error when quota delay too long")
		}
		if len(models.calls) != 1 {
			t.Fatalf("expected single call, got %d", len(models.calls))
		}
	})

	t.Run("bad request", func(t *testing.T) {
		stubWait(t)

		models := &fakeModels{}
		models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

		g := &Generator{models: models, model: "gemini-test", maxRetries: 3, logger: zap.NewNop()}

		if _, err := g.Complete(context.Background(), "prompt"); err == nil {
			t.Fatal("expected error for bad request")
		}
		if len(models.calls) != 1 {
			t.Fatalf("expected single call, got %d", len(models.calls))
		}
	})

	t.Run("context deadline", func(t *testing.T) {
		stubWait(t)

		models := &fakeModels{}
		models.enqueue(nil, context.DeadlineExceeded)

		g := &Generator{models: models, model: "gemini-test", maxRetries: 3, logger: zap.NewNop()}

		_, err := g.Complete(context.Background(), "prompt")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error to be wrapped, got %v", err)
		}
		if len(models.calls) != 1 {
			t.Fatalf("expected single call, got %d", len(models.calls))
		}
	})
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("  "), nil)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 1, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := &Generator{models: &fakeModels{}, model: "gemini-test", maxRetries: 1, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), " \n "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGeneratorProbe(t *testing.T) {
	models := &fakeModels{}
	g := &Generator{models: models, model: "gemini-test", maxRetries: 1, logger: zap.NewNop()}

	if err := g.Probe(context.Background()); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if models.gotModel != "gemini-test" {
		t.Fatalf("probe requested unexpected model %q", models.gotModel)
	}

	models.getErr = genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"}
	if err := g.Probe(context.Background()); err == nil {
		t.Fatal("expected probe to fail")
	}

	var nilGenerator *Generator
	if err := nilGenerator.Probe(context.Background()); err == nil {
		t.Fatal("expected nil generator probe to fail")
	}
}

func TestRetryDelayShortQuota(t *testing.T) {
	delay, retry := retryDelay(genai.APIError{
		Code:    http.StatusTooManyRequests,
		Message: "Please retry in 2.5s.",
	}, 1)

	if !retry {
		t.Fatal("expected short quota delay to be retried")
	}
	if delay != 2500*time.Millisecond {
		t.Fatalf("unexpected delay: %s", delay)
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "   ", "", 0, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	g, err := NewGenerator(context.Background(), "test-key", "  ", 0, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := g.Model(); got != DefaultModel {
		t.Fatalf("expected default model %q, got %q", DefaultModel, got)
	}
	if g.maxRetries != defaultMaxRetries {
		t.Fatalf("expected %d retries, got %d", defaultMaxRetries, g.maxRetries)
	}
}
