package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"tradescope/internal/logger"
)

// GeminiConfig configures the Gemini API provider.
type GeminiConfig struct {
	ID         string
	APIKey     string
	BaseURL    string
	Headers    map[string]string
	HTTPClient *http.Client
}

// GeminiProvider calls Models.GenerateContent through the genai SDK.
type GeminiProvider struct {
	id     string
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	if len(cfg.Headers) > 0 {
		h := make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			h.Set(k, v)
		}
		cc.HTTPOptions.Headers = h
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = "gemini"
	}
	return &GeminiProvider{id: id, client: client}, nil
}

func (g *GeminiProvider) ID() string                { return g.id }
func (g *GeminiProvider) SupportsImageOutput() bool { return true }

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsBlob() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	conf := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.Schema != nil {
		conf.ResponseMIMEType = "application/json"
		conf.ResponseSchema = toGenaiSchema(req.Schema)
	}
	if req.WantsImage() {
		mods := make([]string, 0, len(req.Modalities))
		for _, m := range req.Modalities {
			mods = append(mods, string(m))
		}
		conf.ResponseModalities = mods
	}
	logger.Debugf("[AI] gemini generate model=%s purpose=%s parts=%d schema=%t image=%t",
		req.Model, req.Purpose, len(parts), req.Schema != nil, req.WantsImage())

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, conf)
	if err != nil {
		return Response{}, err
	}
	return fromGenaiResponse(resp)
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) (Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Response{}, fmt.Errorf("request blocked: %s %s", resp.PromptFeedback.BlockReason, resp.PromptFeedback.BlockReasonMessage)
		}
		return Response{}, fmt.Errorf("empty candidates")
	}
	var out Response
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out.Parts = append(out.Parts, BlobPart(part.InlineData.MIMEType, part.InlineData.Data))
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
				out.Parts = append(out.Parts, TextPart(part.Text))
			}
		}
		// Only the first candidate is meaningful for a single-shot request.
		break
	}
	out.Text = text.String()
	return out, nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Enum:        append([]string(nil), s.Enum...),
		Required:    append([]string(nil), s.Required...),
	}
	if len(s.Order) > 0 {
		out.PropertyOrdering = append([]string(nil), s.Order...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, child := range s.Properties {
			out.Properties[name] = toGenaiSchema(child)
		}
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	return out
}

func genaiType(t SchemaType) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeArray:
		return genai.TypeArray
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
