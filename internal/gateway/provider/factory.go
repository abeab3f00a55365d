package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tradescope/internal/config"
)

// BuildProvider constructs the provider selected by ai.provider.
func BuildProvider(ctx context.Context, cfg config.AIConfig) (ModelProvider, error) {
	httpc := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	switch cfg.NormalizedProvider() {
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.APIURL,
			Headers:    cfg.Headers,
			HTTPClient: httpc,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:      cfg.APIURL,
			APIKey:       cfg.APIKey,
			ExtraHeaders: cfg.Headers,
			ImageOutput:  true,
			HTTPClient:   httpc,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported ai.provider: %q", cfg.Provider)
	}
}
