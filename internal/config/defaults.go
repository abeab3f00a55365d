package config

import (
	"strings"
)

const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppLogFormat   = "text"
	defaultAppHTTPAddr    = ":8088"
	defaultSessionTTL     = 1800
	defaultAIProvider     = "gemini"
	defaultAnalyzeModel   = "gemini-2.5-flash"
	defaultImageModel     = "gemini-2.5-flash-image"
	defaultTemperature    = 0.2
	defaultAITimeout      = 120
	defaultMinScale       = 1
	defaultMaxScale       = 8
	defaultWheelSens      = 0.001
	defaultStrokeWidth    = 0.6
	defaultExportWidth    = 1280
	defaultExportHeight   = 900
	defaultExportTimeout  = 20
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Viewer.applyDefaults(keys)
	c.Export.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		fieldDefault{
			key:   "app.session_ttl_seconds",
			need:  func() bool { return a.SessionTTLSeconds <= 0 },
			apply: func() { a.SessionTTLSeconds = defaultSessionTTL },
		},
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ai.provider", &a.Provider, defaultAIProvider),
		stringFieldDefault("ai.analyze_model", &a.AnalyzeModel, defaultAnalyzeModel),
		stringFieldDefault("ai.image_model", &a.ImageModel, defaultImageModel),
		// 0 is a legitimate temperature, so only an absent key gets the default.
		fieldDefault{
			key:   "ai.temperature",
			apply: func() { a.Temperature = defaultTemperature },
		},
		fieldDefault{
			key:   "ai.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAITimeout },
		},
	)
	a.Provider = a.NormalizedProvider()
	if a.Provider == "openai" && strings.TrimSpace(a.APIURL) == "" {
		a.APIURL = defaultOpenAIEndpoint
	}
}

func (v *ViewerConfig) applyDefaults(keys keySet) {
	if v == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("viewer.min_scale", &v.MinScale, defaultMinScale),
		floatFieldDefault("viewer.max_scale", &v.MaxScale, defaultMaxScale),
		floatFieldDefault("viewer.wheel_sensitivity", &v.WheelSensitivity, defaultWheelSens),
		floatFieldDefault("viewer.stroke_width", &v.StrokeWidth, defaultStrokeWidth),
	)
}

func (e *ExportConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "export.width",
			need:  func() bool { return e.Width <= 0 },
			apply: func() { e.Width = defaultExportWidth },
		},
		fieldDefault{
			key:   "export.height",
			need:  func() bool { return e.Height <= 0 },
			apply: func() { e.Height = defaultExportHeight },
		},
		fieldDefault{
			key:   "export.timeout_seconds",
			need:  func() bool { return e.TimeoutSeconds <= 0 },
			apply: func() { e.TimeoutSeconds = defaultExportTimeout },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
