package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Viewer.validate(); err != nil {
		return err
	}
	if err := c.Export.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AIConfig) validate() error {
	switch a.NormalizedProvider() {
	case "gemini":
		if strings.TrimSpace(a.APIKey) == "" {
			return fmt.Errorf("ai.api_key is required for the gemini provider (or set TRADESCOPE_AI_API_KEY / GEMINI_API_KEY)")
		}
	case "openai":
		if strings.TrimSpace(a.APIURL) == "" {
			return fmt.Errorf("ai.api_url cannot be empty for the openai provider")
		}
	default:
		return fmt.Errorf("ai.provider must be gemini or openai, got %q", a.Provider)
	}
	if strings.TrimSpace(a.AnalyzeModel) == "" {
		return fmt.Errorf("ai.analyze_model cannot be empty")
	}
	if strings.TrimSpace(a.ImageModel) == "" {
		return fmt.Errorf("ai.image_model cannot be empty")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be in [0,2]")
	}
	return nil
}

func (v *ViewerConfig) validate() error {
	if v.MinScale <= 0 {
		return fmt.Errorf("viewer.min_scale must be > 0")
	}
	if v.MaxScale < v.MinScale {
		return fmt.Errorf("viewer.max_scale must be >= viewer.min_scale")
	}
	if v.WheelSensitivity <= 0 {
		return fmt.Errorf("viewer.wheel_sensitivity must be > 0")
	}
	if v.StrokeWidth <= 0 {
		return fmt.Errorf("viewer.stroke_width must be > 0")
	}
	return nil
}

func (e *ExportConfig) validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Width < 200 || e.Height < 200 {
		return fmt.Errorf("export.width and export.height must be >= 200")
	}
	return nil
}
