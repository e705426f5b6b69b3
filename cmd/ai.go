package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/ai"
	"github.com/spigell/ups-ranker/internal/ai/claude"
	"github.com/spigell/ups-ranker/internal/ai/gemini"
	"github.com/spigell/ups-ranker/internal/logger"
	"github.com/spigell/ups-ranker/internal/pipeline"
	"github.com/spigell/ups-ranker/internal/resume"
	"github.com/spigell/ups-ranker/internal/secrets"
)

const (
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"
)

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		return nil, errors.New("ai configuration is required")
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", providerGemini:
		gcfg := cfg.Gemini
		if gcfg == nil {
			gcfg = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: gcfg.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		genLogger := logger.WithCommonFields(log, providerGemini, gcfg.Model).With(
			zap.Int("ai_retry_attempts", gcfg.MaxRetries),
		)
		return gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)

	case providerAnthropic, "claude":
		acfg := cfg.Anthropic
		if acfg == nil {
			acfg = &AnthropicConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "anthropic api key",
			File: acfg.APIKeyFile,
			Env:  "ANTHROPIC_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.anthropic.api-key-file or ANTHROPIC_API_KEY)", err)
		}

		genLogger := logger.WithCommonFields(log, providerAnthropic, acfg.Model)
		return claude.NewGenerator(apiKey, acfg.Model, acfg.MaxTokens, acfg.MaxRetries, genLogger)

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newAssistant(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*ai.Assistant, error) {
	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	assistantLogger := logger.WithCommonFields(log, cfg.Provider, generator.Model())
	return ai.NewAssistant(generator, assistantLogger, cfg.MaxLogLength), nil
}

// newCollaborators returns the pipeline collaborators. Without AI the pipeline runs
// with fallback insights and no CV signals.
func newCollaborators(ctx context.Context, cfg *AIConfig, log *zap.Logger) pipeline.Collaborators {
	if cfg == nil || !cfg.Enabled {
		log.Info("ai is disabled, using fallback insights")
		return pipeline.Collaborators{}
	}

	assistant, err := newAssistant(ctx, cfg, log)
	if err != nil {
		log.Warn("skipping ai collaborators", zap.Error(err))
		return pipeline.Collaborators{}
	}

	return pipeline.Collaborators{
		Insights: assistant,
		CV:       assistant,
		Resumes:  resume.NewFetcher(cfg.ResumeTimeout, log),
	}
}
