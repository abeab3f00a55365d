// Package inference performs the two calls against the external multimodal
// service: chart analysis and continuation image generation.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradescope/internal/analysis"
	"tradescope/internal/gateway/provider"
	"tradescope/internal/logger"
	"tradescope/internal/pkg/jsonutil"
	"tradescope/internal/upload"
)

var (
	// ErrAnalysisFailed wraps every failure of Analyze.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrGenerationFailed wraps service failures of Continue.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrNoImageProduced is returned when the continuation response has no
	// inline image part.
	ErrNoImageProduced = errors.New("no image produced")
	// ErrNoPriorResult rejects a continuation without an analysis to extend.
	ErrNoPriorResult = errors.New("continuation requires a prior analysis result")
	// ErrNoImage rejects a call without image bytes.
	ErrNoImage = errors.New("no image supplied")
)

const (
	purposeAnalyze      = "analyze"
	purposeContinuation = "continuation"
)

// ContinuationImage is the generated chart extension.
type ContinuationImage struct {
	Data     []byte
	MIMEType string
}

func (c ContinuationImage) IsZero() bool { return len(c.Data) == 0 }

// Options selects models and sampling for the two calls.
type Options struct {
	AnalyzeModel string
	ImageModel   string
	Temperature  float64
	// Timeout bounds the local wait of one call; zero leaves it to ctx.
	Timeout time.Duration
}

// Client issues exactly one request per call and never retains the image.
type Client struct {
	provider  provider.ModelProvider
	validator *analysis.Validator
	prompts   *PromptRegistry
	opts      Options
}

func NewClient(p provider.ModelProvider, v *analysis.Validator, prompts *PromptRegistry, opts Options) *Client {
	if v == nil {
		v = analysis.NewValidator(false)
	}
	return &Client{provider: p, validator: v, prompts: prompts, opts: opts}
}

// ResultSchema is the structured output declared to the service for Analyze.
func ResultSchema() *provider.Schema {
	point := func() *provider.Schema {
		return &provider.Schema{
			Type: provider.TypeObject,
			Properties: map[string]*provider.Schema{
				"x": {Type: provider.TypeNumber},
				"y": {Type: provider.TypeNumber},
			},
			Required: []string{"x", "y"},
			Order:    []string{"x", "y"},
		}
	}
	recs := make([]string, 0, len(analysis.Recommendations))
	for _, r := range analysis.Recommendations {
		recs = append(recs, string(r))
	}
	types := make([]string, 0, len(analysis.AnnotationTypes))
	for _, t := range analysis.AnnotationTypes {
		types = append(types, string(t))
	}
	fields := []string{"prediction", "recommendation", "confidence", "rationale", "annotation"}
	return &provider.Schema{
		Type: provider.TypeObject,
		Properties: map[string]*provider.Schema{
			"prediction":     {Type: provider.TypeString},
			"recommendation": {Type: provider.TypeString, Enum: recs},
			"confidence":     {Type: provider.TypeInteger},
			"rationale":      {Type: provider.TypeString},
			"annotation": {
				Type: provider.TypeObject,
				Properties: map[string]*provider.Schema{
					"type":  {Type: provider.TypeString, Enum: types},
					"start": point(),
					"end":   point(),
				},
				Required: []string{"type", "start", "end"},
				Order:    []string{"type", "start", "end"},
			},
		},
		Required: fields,
		Order:    fields,
	}
}

// Analyze sends the image with the analysis instruction and validates the
// reply. Every failure is reported as ErrAnalysisFailed.
func (c *Client) Analyze(ctx context.Context, img upload.Image) (analysis.Result, error) {
	res, err := c.analyze(ctx, img)
	if err != nil {
		logger.Warnf("analysis failed provider=%s: %v", c.provider.ID(), err)
		return analysis.Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	return res, nil
}

func (c *Client) analyze(ctx context.Context, img upload.Image) (analysis.Result, error) {
	if img.IsZero() {
		return analysis.Result{}, ErrNoImage
	}
	prompt, err := c.prompts.Analyze()
	if err != nil {
		return analysis.Result{}, err
	}
	temp := float32(c.opts.Temperature)
	req := provider.Request{
		Model:       c.opts.AnalyzeModel,
		Purpose:     purposeAnalyze,
		Parts:       []provider.Part{provider.BlobPart(img.MIMEType, img.Data), provider.TextPart(prompt)},
		Temperature: &temp,
		Schema:      ResultSchema(),
		Modalities:  []provider.Modality{provider.ModalityText},
	}
	resp, err := c.generate(ctx, req, img)
	if err != nil {
		return analysis.Result{}, err
	}
	return c.validator.ParseText(resp.Text)
}

// Continue asks for a continuation image keyed off prior.
func (c *Client) Continue(ctx context.Context, img upload.Image, prior analysis.Result) (ContinuationImage, error) {
	if img.IsZero() {
		return ContinuationImage{}, ErrNoImage
	}
	if prior.IsZero() {
		return ContinuationImage{}, ErrNoPriorResult
	}
	if !c.provider.SupportsImageOutput() {
		return ContinuationImage{}, fmt.Errorf("%w: %w", ErrGenerationFailed, provider.ErrImageOutputUnsupported)
	}
	prompt, err := c.prompts.Continuation(prior)
	if err != nil {
		return ContinuationImage{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	req := provider.Request{
		Model:      c.opts.ImageModel,
		Purpose:    purposeContinuation,
		Parts:      []provider.Part{provider.BlobPart(img.MIMEType, img.Data), provider.TextPart(prompt)},
		Modalities: []provider.Modality{provider.ModalityImage, provider.ModalityText},
	}
	resp, err := c.generate(ctx, req, img)
	if err != nil {
		logger.Warnf("generation failed provider=%s: %v", c.provider.ID(), err)
		return ContinuationImage{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	blob, ok := resp.FirstBlob()
	if !ok {
		logger.Warnf("continuation returned no image provider=%s text=%q", c.provider.ID(), resp.Text)
		return ContinuationImage{}, ErrNoImageProduced
	}
	mt := blob.MIMEType
	if mt == "" {
		mt = "image/png"
	}
	return ContinuationImage{Data: blob.Data, MIMEType: mt}, nil
}

func (c *Client) generate(ctx context.Context, req provider.Request, img upload.Image) (provider.Response, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	var prompt string
	for _, p := range req.Parts {
		if !p.IsBlob() {
			prompt = p.Text
		}
	}
	var payload string
	if req.Schema != nil {
		if raw, err := json.Marshal(req.Schema.JSONSchema()); err == nil {
			payload = jsonutil.Pretty(string(raw))
		}
	}
	logger.LogLLMRequest(c.provider.ID(), req.Purpose, prompt, []string{img.Summary()}, payload)
	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return provider.Response{}, err
	}
	logger.LogLLMResponse(c.provider.ID(), req.Purpose, summarizeResponse(resp))
	logger.Debugf("[AI] %s done provider=%s model=%s in %s", req.Purpose, c.provider.ID(), req.Model, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

func summarizeResponse(resp provider.Response) string {
	out := jsonutil.Pretty(resp.Text)
	for _, p := range resp.Parts {
		if p.IsBlob() {
			out += fmt.Sprintf("\n[inline %s %d bytes]", p.MIMEType, len(p.Data))
		}
	}
	return out
}
