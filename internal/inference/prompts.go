package inference

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tradescope/internal/analysis"
	"tradescope/internal/logger"
)

const defaultAnalyzePrompt = `You are a technical analyst. Study the attached market chart and reply with a single JSON object and nothing else, using exactly these five fields:
{
  "prediction": string, a short description of the expected next move,
  "recommendation": one of "BUY", "SELL", "HOLD",
  "confidence": integer from 0 to 100,
  "rationale": string, the chart evidence behind the call,
  "annotation": {
    "type": "arrow" or "line",
    "start": {"x": number, "y": number},
    "end": {"x": number, "y": number}
  }
}
Annotation coordinates are percentages (0-100) of the image width (x) and height (y), measured from the top-left corner. Place the start on the most recent price action and point the end where price is expected to go.`

const defaultContinuationPrompt = `Extend the attached market chart to the right by roughly one quarter of its current width, drawing the price action that would follow.
The previous analysis recommended {{.Recommendation}} and predicted: {{.Prediction}}
Bias the new segment {{.Direction}}. Keep the existing part of the chart unchanged and match its style exactly: colors, candle or line shapes, grid, axes and background.`

// ContinuationData is the template input of the continuation instruction.
type ContinuationData struct {
	Recommendation analysis.Recommendation
	Prediction     string
	Direction      string
}

// Direction maps a recommendation to the bias of the generated segment.
func Direction(r analysis.Recommendation) string {
	switch r {
	case analysis.Buy:
		return "upward"
	case analysis.Sell:
		return "downward"
	default:
		return "sideways with some volatility"
	}
}

type promptFile struct {
	Analyze      string `yaml:"analyze"`
	Continuation string `yaml:"continuation"`
}

type promptSet struct {
	version      int64
	analyze      *template.Template
	continuation *template.Template
}

// PromptRegistry holds the two instruction templates. With a file path the
// templates are overridden from YAML and reloaded when the file changes.
type PromptRegistry struct {
	path string

	mu  sync.RWMutex
	set promptSet
}

// NewPromptRegistry loads the defaults, then the optional override file.
func NewPromptRegistry(path string) (*PromptRegistry, error) {
	r := &PromptRegistry{path: strings.TrimSpace(path)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt file failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("prompt reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

func (r *PromptRegistry) reload() error {
	file := promptFile{}
	if r.path != "" {
		var err error
		if file, err = readPromptFile(r.path); err != nil {
			return err
		}
	}
	analyze, err := parsePrompt("analyze", file.Analyze, defaultAnalyzePrompt)
	if err != nil {
		return err
	}
	continuation, err := parsePrompt("continuation", file.Continuation, defaultContinuationPrompt)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.set = promptSet{
		version:      r.set.version + 1,
		analyze:      analyze,
		continuation: continuation,
	}
	r.mu.Unlock()
	if r.path != "" {
		logger.Infof("Prompt registry loaded from %s", filepath.Base(r.path))
	}
	return nil
}

func readPromptFile(path string) (promptFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return promptFile{}, fmt.Errorf("read prompt file failed: %w", err)
	}
	var file promptFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return promptFile{}, fmt.Errorf("parse prompt file failed: %w", err)
	}
	return file, nil
}

func parsePrompt(name, override, fallback string) (*template.Template, error) {
	body := strings.TrimSpace(override)
	if body == "" {
		body = fallback
	}
	tpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", name, err)
	}
	return tpl, nil
}

// Version increments on every successful load.
func (r *PromptRegistry) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.version
}

// Analyze renders the analysis instruction.
func (r *PromptRegistry) Analyze() (string, error) {
	r.mu.RLock()
	tpl := r.set.analyze
	r.mu.RUnlock()
	return execute(tpl, nil)
}

// Continuation renders the continuation instruction for prior.
func (r *PromptRegistry) Continuation(prior analysis.Result) (string, error) {
	r.mu.RLock()
	tpl := r.set.continuation
	r.mu.RUnlock()
	return execute(tpl, ContinuationData{
		Recommendation: prior.Recommendation,
		Prediction:     prior.Prediction,
		Direction:      Direction(prior.Recommendation),
	})
}

func execute(tpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
