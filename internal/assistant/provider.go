package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/gemini"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// New returns the configured Assistant. Provider "none" (or an empty
// provider) yields Unavailable.
func New(ctx context.Context, cfg config.AssistantConfig, logger *zap.Logger) (Assistant, error) {
	var (
		client gollem.LLMClient
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		logger.Warn("no assistant provider configured; tickets go straight to analysts")
		return Unavailable{}, nil
	case "gemini":
		client, err = gemini.New(ctx, cfg.Gemini.ProjectID, cfg.Gemini.Location, gemini.WithModel(cfg.Gemini.Model))
	case "claude":
		client, err = claude.NewWithVertex(ctx, cfg.Claude.Location, cfg.Claude.ProjectID, claude.WithVertexModel(cfg.Claude.Model))
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	logger.Info("assistant configured", zap.String("provider", cfg.Provider))
	return NewLLM(LLMDependencies{
		Client:      client,
		DisplayName: cfg.DisplayName,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:      logger,
	}), nil
}
