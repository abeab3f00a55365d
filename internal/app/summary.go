package app

import (
	"fmt"
	"strings"

	"tradescope/internal/config"
	"tradescope/internal/logger"
)

// StartupSummary is printed once before the server starts.
type StartupSummary struct {
	HTTPAddr     string
	Provider     string
	AnalyzeModel string
	ImageModel   string
	Temperature  float64
	Strict       bool
	PromptsPath  string
	Viewer       config.ViewerConfig
	Export       string
	SessionTTL   int
}

func newStartupSummary(cfg *config.Config) *StartupSummary {
	export := "disabled"
	if cfg.Export.Enabled {
		export = fmt.Sprintf("%dx%d, timeout %ds", cfg.Export.Width, cfg.Export.Height, cfg.Export.TimeoutSeconds)
	}
	return &StartupSummary{
		HTTPAddr:     cfg.App.HTTPAddr,
		Provider:     cfg.AI.NormalizedProvider(),
		AnalyzeModel: cfg.AI.AnalyzeModel,
		ImageModel:   cfg.AI.ImageModel,
		Temperature:  cfg.AI.Temperature,
		Strict:       cfg.Analysis.Strict,
		PromptsPath:  cfg.Analysis.PromptsPath,
		Viewer:       cfg.Viewer,
		Export:       export,
		SessionTTL:   cfg.App.SessionTTLSeconds,
	}
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	b.WriteString(line + "\n")
	b.WriteString("STARTUP SUMMARY\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "  http:         %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  provider:     %s\n", s.Provider)
	fmt.Fprintf(&b, "  models:       analyze=%s image=%s\n", s.AnalyzeModel, s.ImageModel)
	fmt.Fprintf(&b, "  temperature:  %g\n", s.Temperature)
	mode := "lenient"
	if s.Strict {
		mode = "strict"
	}
	fmt.Fprintf(&b, "  validation:   %s\n", mode)
	prompts := s.PromptsPath
	if prompts == "" {
		prompts = "(built-in)"
	}
	fmt.Fprintf(&b, "  prompts:      %s\n", prompts)
	fmt.Fprintf(&b, "  viewer:       scale %g..%g, wheel %g, stroke %g\n",
		s.Viewer.MinScale, s.Viewer.MaxScale, s.Viewer.WheelSensitivity, s.Viewer.StrokeWidth)
	fmt.Fprintf(&b, "  export:       %s\n", s.Export)
	fmt.Fprintf(&b, "  session ttl:  %ds\n", s.SessionTTL)
	b.WriteString(line)
	return b.String()
}

func (s *StartupSummary) Print() {
	logger.InfoBlock(s.String())
}
