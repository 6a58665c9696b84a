package recommend

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/rallypoint/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	defaultMaxLogLength = 200
)

var (
	ErrRemoteTimeout     = errors.New("remote completion timed out")
	ErrRemoteCall        = errors.New("remote completion failed")
	ErrMalformedResponse = errors.New("malformed remote response")
)

// denylist entries are matched as lowercase substrings.
var denylist = []string{
	"weapon", "firearm", "handgun", "rifle", "ammunition", "ammo",
	"explosive", "bomb", "detonator", "grenade",
	"drug", "narcotic", "cocaine", "heroin", "methamphetamine", "fentanyl",
}

//go:embed prompt.md
var promptTemplate string

type Config struct {
	// RemoteEnabled is decided once at startup, usually by Probe.
	RemoteEnabled bool
	Timeout       time.Duration
	MaxLogLength  int
}

// Engine turns posting descriptions into staffing recommendations. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	provider  TextCompletionProvider
	remote    bool
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

func NewEngine(cfg Config, provider TextCompletionProvider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Engine{
		provider:  provider,
		remote:    cfg.RemoteEnabled && provider != nil,
		timeout:   timeout,
		maxLogLen: maxLogLen,
		logger:    logger,
	}
}

// RemoteEnabled reports whether the engine delegates to the remote provider.
func (e *Engine) RemoteEnabled() bool {
	return e.remote
}

// Recommend never fails: remote errors downgrade to the local heuristic.
func (e *Engine) Recommend(ctx context.Context, description string) *Recommendation {
	if IsProhibited(description) {
		e.logger.Info("description rejected by safety gate",
			zap.Int("description_length", utf8.RuneCountInString(description)),
		)
		return &Recommendation{Prohibited: true, Message: ProhibitedMessage}
	}

	if e.remote {
		rec, err := e.recommendRemote(ctx, description)
		if err == nil {
			return rec
		}

		e.logger.Warn("remote recommendation failed, falling back to heuristic",
			zap.String("error_class", errorClass(err)),
			zap.Error(err),
		)
	}

	return Heuristic(description)
}

// IsProhibited reports whether the description mentions denied content.
func IsProhibited(description string) bool {
	text := strings.ToLower(description)
	for _, term := range denylist {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func (e *Engine) recommendRemote(ctx context.Context, description string) (*Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := buildPrompt(description)

	e.logger.Debug("remote recommendation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
		zap.Duration("timeout", e.timeout),
	)

	raw, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrRemoteTimeout, e.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRemoteCall, err)
	}

	e.logger.Debug("remote recommendation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	rec, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	e.logger.Info("remote recommendation succeeded",
		zap.Strings("specialties", rec.Specialties),
		zap.Int("num_people", rec.NumPeople),
	)

	return rec, nil
}

// Probe runs a single bounded connectivity check against the provider. The
// result is meant to be passed as Config.RemoteEnabled.
func Probe(ctx context.Context, provider TextCompletionProvider, timeout time.Duration, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}

	if provider == nil {
		logger.Info("remote recommendations disabled", zap.String("reason", "no provider configured"))
		return false
	}

	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	if err := provider.Probe(ctx); err != nil {
		logger.Warn("remote recommendations disabled",
			zap.String("reason", "connectivity probe failed"),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return false
	}

	logger.Info("remote recommendations enabled", zap.Duration("probe_duration", time.Since(started)))
	return true
}

func buildPrompt(description string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{DESCRIPTION}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{DESCRIPTION}}", strings.TrimSpace(description))
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrRemoteTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrRemoteCall):
		return "call"
	default:
		return "unknown"
	}
}
