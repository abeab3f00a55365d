package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradescope/internal/logger"
	"tradescope/internal/pkg/jsonutil"
	"tradescope/internal/pkg/text"
)

// OpenAIConfig configures an OpenAI-compatible /chat/completions gateway.
type OpenAIConfig struct {
	ID           string
	BaseURL      string
	APIKey       string
	ExtraHeaders map[string]string
	// ImageOutput enables the "modalities" extension some gateways expose for
	// image generation (images come back under message.images).
	ImageOutput bool
	HTTPClient  *http.Client
}

// OpenAIProvider talks to OpenAI / OpenRouter style chat completion APIs.
type OpenAIProvider struct {
	id          string
	url         string
	apiKey      string
	headers     map[string]string
	imageOutput bool
	httpc       *http.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = "openai"
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 180 * time.Second}
	}
	return &OpenAIProvider{
		id:          id,
		url:         chatCompletionsURL(cfg.BaseURL),
		apiKey:      cfg.APIKey,
		headers:     cfg.ExtraHeaders,
		imageOutput: cfg.ImageOutput,
		httpc:       httpc,
	}
}

// chatCompletionsURL tolerates a base URL that already ends in
// /chat/completions so the path is never doubled.
func chatCompletionsURL(base string) string {
	url := strings.TrimSpace(base)
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (p *OpenAIProvider) ID() string                { return p.id }
func (p *OpenAIProvider) SupportsImageOutput() bool { return p.imageOutput }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if req.WantsImage() && !p.imageOutput {
		return Response{}, ErrImageOutputUnsupported
	}
	body, err := json.Marshal(p.buildBody(req))
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	logger.Debugf("[AI] request: POST %s, headers=%v, bytes=%d purpose=%s", p.url, p.maskedHeaders(), len(body), req.Purpose)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpc.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
		if msg == "" {
			msg = resp.Status
		}
		return Response{}, fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}
	out, err := parseChatResponse(raw)
	if err != nil {
		return Response{}, err
	}
	if req.Schema != nil {
		if obj, ok := jsonutil.ExtractObject(out.Text); ok {
			out.Text = obj
		}
	}
	return out, nil
}

func (p *OpenAIProvider) buildBody(req Request) map[string]any {
	content := make([]map[string]any, 0, len(req.Parts))
	for _, part := range req.Parts {
		if part.IsBlob() {
			content = append(content, map[string]any{
				"type":      "image_url",
				"image_url": map[string]string{"url": part.DataURI()},
			})
			continue
		}
		content = append(content, map[string]any{"type": "text", "text": part.Text})
	}
	body := map[string]any{
		"model":    req.Model,
		"messages": []map[string]any{{"role": "user", "content": content}},
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.Schema != nil {
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName(req.Purpose),
				"strict": true,
				"schema": req.Schema.JSONSchema(),
			},
		}
	}
	if req.WantsImage() {
		mods := make([]string, 0, len(req.Modalities))
		for _, m := range req.Modalities {
			mods = append(mods, strings.ToLower(string(m)))
		}
		body["modalities"] = mods
	}
	return body
}

func schemaName(purpose string) string {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return "result"
	}
	return strings.ReplaceAll(purpose, "-", "_") + "_result"
}

// maskedHeaders mirrors the outgoing headers with secrets reduced to their
// last four characters.
func (p *OpenAIProvider) maskedHeaders() map[string]string {
	hlog := map[string]string{"Content-Type": "application/json"}
	if p.apiKey != "" {
		hlog["Authorization"] = "Bearer " + maskSecret(p.apiKey)
	}
	for k, v := range p.headers {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = maskSecret(v)
		}
		hlog[k] = v
	}
	return hlog
}

func maskSecret(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}

func parseChatResponse(raw []byte) (Response, error) {
	if !gjson.ValidBytes(raw) {
		return Response{}, fmt.Errorf("invalid response body: %s", text.Truncate(string(raw), 160))
	}
	choices := gjson.GetBytes(raw, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return Response{}, fmt.Errorf("empty choices")
	}
	msg := choices.Array()[0].Get("message")
	var out Response
	var sb strings.Builder
	content := msg.Get("content")
	switch {
	case content.IsArray():
		content.ForEach(func(_, item gjson.Result) bool {
			switch item.Get("type").String() {
			case "text":
				t := item.Get("text").String()
				sb.WriteString(t)
				out.Parts = append(out.Parts, TextPart(t))
			case "image_url":
				if part, ok := decodeDataURI(item.Get("image_url.url").String()); ok {
					out.Parts = append(out.Parts, part)
				}
			}
			return true
		})
	case content.Type == gjson.String:
		sb.WriteString(content.String())
		if content.String() != "" {
			out.Parts = append(out.Parts, TextPart(content.String()))
		}
	}
	msg.Get("images").ForEach(func(_, item gjson.Result) bool {
		if part, ok := decodeDataURI(item.Get("image_url.url").String()); ok {
			out.Parts = append(out.Parts, part)
		}
		return true
	})
	out.Text = sb.String()
	return out, nil
}

// decodeDataURI parses data:<mime>;base64,<payload>. Remote URLs are ignored.
func decodeDataURI(uri string) (Part, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return Part{}, false
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return Part{}, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Part{}, false
	}
	return BlobPart(strings.TrimSuffix(meta, ";base64"), data), true
}
