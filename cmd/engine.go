package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/ai/gemini"
	"github.com/spigell/rallypoint/internal/logger"
	"github.com/spigell/rallypoint/internal/recommend"
	"github.com/spigell/rallypoint/internal/secrets"
)

// newEngine builds the recommendation engine. Remote completions are enabled
// only when AI is on, a credential resolves and the startup probe succeeds;
// every other path falls back to the heuristic.
func newEngine(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*recommend.Engine, error) {
	engineLogger := logger.Component(log, "recommend")

	provider, err := newProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		return recommend.NewEngine(recommend.Config{}, nil, engineLogger), nil
	}

	enabled := recommend.Probe(ctx, provider, cfg.ProbeTimeout, engineLogger)

	return recommend.NewEngine(recommend.Config{
		RemoteEnabled: enabled,
		Timeout:       cfg.Timeout,
		MaxLogLength:  cfg.Gemini.MaxLogLength,
	}, provider, engineLogger), nil
}

// newProvider returns nil without error when remote recommendations are
// switched off or no credential is configured.
func newProvider(ctx context.Context, cfg *AIConfig, log *zap.Logger) (recommend.TextCompletionProvider, error) {
	if cfg == nil || !cfg.Enabled {
		log.Info("remote recommendations disabled by configuration")
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		if errors.Is(err, secrets.ErrNotConfigured) {
			log.Info("no gemini api key configured, using heuristic recommendations",
				zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file"),
			)
			return nil, nil
		}
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	log.Info("remote recommendation provider configured",
		zap.String(logger.FieldProvider, "gemini"),
		zap.String(logger.FieldModel, generator.Model()),
	)

	return generator, nil
}
