package app

import (
	"context"
	"fmt"
	"time"

	"tradescope/internal/analysis"
	"tradescope/internal/config"
	"tradescope/internal/gateway/provider"
	"tradescope/internal/inference"
	"tradescope/internal/logger"
	"tradescope/internal/render"
	"tradescope/internal/session"
	webhttp "tradescope/internal/transport/http/web"
	"tradescope/internal/viewport"
)

// AppBuilder assembles the application from configuration. The provider
// constructor can be replaced for tests.
type AppBuilder struct {
	cfg *config.Config

	providerFn func(context.Context, config.AIConfig) (provider.ModelProvider, error)
}

type AppBuilderOption func(*AppBuilder)

// WithProvider replaces the inference provider built from ai.*.
func WithProvider(p provider.ModelProvider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.providerFn = func(context.Context, config.AIConfig) (provider.ModelProvider, error) { return p, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg, providerFn: provider.BuildProvider}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// BuildInference constructs the inference client alone, as the one-shot CLI
// needs it.
func (b *AppBuilder) BuildInference(ctx context.Context) (*inference.Client, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	p, err := b.providerFn(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	prompts, err := inference.NewPromptRegistry(cfg.Analysis.PromptsPath)
	if err != nil {
		return nil, err
	}
	validator := analysis.NewValidator(cfg.Analysis.Strict)
	return inference.NewClient(p, validator, prompts, inference.Options{
		AnalyzeModel: cfg.AI.AnalyzeModel,
		ImageModel:   cfg.AI.ImageModel,
		Temperature:  cfg.AI.Temperature,
		Timeout:      time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	}), nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	client, err := b.BuildInference(ctx)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(client, viewerConfig(cfg.Viewer), time.Duration(cfg.App.SessionTTLSeconds)*time.Second)

	var exporter webhttp.Exporter
	if cfg.Export.Enabled {
		exporter = render.NewExporter(true, cfg.Export.Width, cfg.Export.Height, time.Duration(cfg.Export.TimeoutSeconds)*time.Second)
	}
	server, err := webhttp.NewServer(webhttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Sessions: store,
		Exporter: exporter,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		sessions: store,
		http:     server,
		Summary:  newStartupSummary(cfg),
	}, nil
}

func viewerConfig(v config.ViewerConfig) viewport.Config {
	return viewport.Config{
		MinScale:         v.MinScale,
		MaxScale:         v.MaxScale,
		WheelSensitivity: v.WheelSensitivity,
		StrokeWidth:      v.StrokeWidth,
	}
}
