package config

import "strings"

// Config is the root configuration of tradescope.
type Config struct {
	App      AppConfig      `yaml:"app"`
	AI       AIConfig       `yaml:"ai"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Export   ExportConfig   `yaml:"export"`
}

type AppConfig struct {
	Env               string `yaml:"env"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	HTTPAddr          string `yaml:"http_addr"`
	LogPath           string `yaml:"log_path"`
	LLMLog            string `yaml:"llm_log_path"`
	LLMDump           bool   `yaml:"llm_dump_payload"`
	SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
}

// AIConfig describes the external inference service.
type AIConfig struct {
	Provider       string            `yaml:"provider"` // "gemini" | "openai"
	APIURL         string            `yaml:"api_url"`
	APIKey         string            `yaml:"api_key"`
	AnalyzeModel   string            `yaml:"analyze_model"`
	ImageModel     string            `yaml:"image_model"`
	Temperature    float64           `yaml:"temperature"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Headers        map[string]string `yaml:"headers"`
}

// NormalizedProvider returns the lower-cased provider name.
func (a AIConfig) NormalizedProvider() string {
	return strings.ToLower(strings.TrimSpace(a.Provider))
}

type AnalysisConfig struct {
	// Strict additionally checks annotation.type and a non-empty prediction.
	Strict      bool   `yaml:"strict"`
	PromptsPath string `yaml:"prompts_path"`
}

type ViewerConfig struct {
	MinScale         float64 `yaml:"min_scale"`
	MaxScale         float64 `yaml:"max_scale"`
	WheelSensitivity float64 `yaml:"wheel_sensitivity"`
	StrokeWidth      float64 `yaml:"stroke_width"`
}

// ExportConfig controls the headless PNG export of a rendered session.
type ExportConfig struct {
	Enabled        bool `yaml:"enabled"`
	Width          int  `yaml:"width"`
	Height         int  `yaml:"height"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// keySet tracks the key paths explicitly present in the config sources.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes how one field receives its default value.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
