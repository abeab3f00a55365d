package webhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/analysis"
	"tradescope/internal/gateway/provider"
	"tradescope/internal/inference"
	"tradescope/internal/session"
	"tradescope/internal/viewport"
)

const holdReply = `{"prediction":"Range-bound consolidation","recommendation":"HOLD","confidence":55,"rationale":"No clear breakout.","annotation":{"type":"line","start":{"x":10,"y":50},"end":{"x":90,"y":50}}}`

type stubProvider struct {
	analyzeText string
	imageErr    error
	calls       int
}

func (p *stubProvider) ID() string                { return "stub" }
func (p *stubProvider) SupportsImageOutput() bool { return true }
func (p *stubProvider) Generate(_ context.Context, req provider.Request) (provider.Response, error) {
	p.calls++
	if req.WantsImage() {
		if p.imageErr != nil {
			return provider.Response{}, p.imageErr
		}
		return provider.Response{Parts: []provider.Part{provider.BlobPart("image/png", []byte("continued"))}}, nil
	}
	return provider.Response{Text: p.analyzeText}, nil
}

type stubExporter struct{ html []byte }

func (e *stubExporter) PNG(_ context.Context, html []byte) ([]byte, error) {
	e.html = html
	return []byte("\x89PNG"), nil
}

type harness struct {
	t        *testing.T
	handler  http.Handler
	provider *stubProvider
	exporter *stubExporter
}

func newHarness(t *testing.T, reply string) *harness {
	t.Helper()
	p := &stubProvider{analyzeText: reply}
	prompts, err := inference.NewPromptRegistry("")
	require.NoError(t, err)
	client := inference.NewClient(p, analysis.NewValidator(false), prompts, inference.Options{AnalyzeModel: "m", ImageModel: "i", Temperature: 0.2})
	store := session.NewStore(client, viewport.DefaultConfig(), time.Hour)
	exp := &stubExporter{}
	srv, err := NewServer(ServerConfig{Sessions: store, Exporter: exp})
	require.NoError(t, err)
	return &harness{t: t, handler: srv.Handler(), provider: p, exporter: exp}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) create() string {
	rec := h.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(h.t, http.StatusCreated, rec.Code)
	var snap session.Snapshot
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap.ID
}

func (h *harness) upload(id string) *httptest.ResponseRecorder {
	h.t.Helper()
	var img bytes.Buffer
	require.NoError(h.t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 300, 200))))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "chart.png")
	require.NoError(h.t, err)
	_, _ = fw.Write(img.Bytes())
	require.NoError(h.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap), rec.Body.String())
	return snap
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, holdReply)
	rec := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t, holdReply)
	rec := h.do(http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeError(t, rec).Label)
}

func TestAnalyzeWithoutImageIsInputError(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	rec := h.do(http.MethodPost, "/api/sessions/"+id+"/analyze", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.provider.calls)
}

func TestHoldScenario(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()

	rec := h.upload(id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeSnapshot(t, rec)
	require.NotNil(t, snap.Image)
	assert.Equal(t, "image/png", snap.Image.MIMEType)
	assert.Equal(t, 300, snap.Image.Width)

	rec = h.do(http.MethodPost, "/api/sessions/"+id+"/viewer/resize", viewport.Size{Width: 300, Height: 200})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/sessions/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decodeSnapshot(t, rec)
	require.NotNil(t, snap.Panel)
	assert.Equal(t, analysis.Hold, snap.Panel.Recommendation)
	assert.Equal(t, "hold", snap.Panel.Style.Class)
	assert.Equal(t, 55.0, snap.Panel.Confidence)
	require.NotNil(t, snap.Overlay)
	require.NotNil(t, snap.Overlay.ScreenStart)
	assert.InDelta(t, 30, snap.Overlay.ScreenStart.X, 1e-9)
	assert.InDelta(t, 100, snap.Overlay.ScreenStart.Y, 1e-9)
	assert.InDelta(t, 270, snap.Overlay.ScreenEnd.X, 1e-9)
	assert.InDelta(t, 100, snap.Overlay.ScreenEnd.Y, 1e-9)

	page := h.do(http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, page.Code)
	html := page.Body.String()
	assert.Contains(t, html, `viewBox="0 0 100 100"`)
	assert.Contains(t, html, `class="rec hold"`)
	assert.Contains(t, html, "Range-bound consolidation")
	assert.NotContains(t, html, "arrow-head)")

	gauge := h.do(http.MethodGet, "/api/sessions/"+id+"/gauge", nil)
	assert.Equal(t, http.StatusOK, gauge.Code)
	assert.Contains(t, gauge.Body.String(), "HOLD")
}

func TestAnalyzeSynonymIsAnalysisFailed(t *testing.T) {
	reply := strings.Replace(holdReply, `"HOLD"`, `"STRONG_BUY"`, 1)
	h := newHarness(t, reply)
	id := h.create()
	require.Equal(t, http.StatusOK, h.upload(id).Code)

	rec := h.do(http.MethodPost, "/api/sessions/"+id+"/analyze", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Analysis Failed", body.Label)
	assert.Contains(t, body.Error, "analysis failed:")

	snap := decodeSnapshot(t, h.do(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Nil(t, snap.Result)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, "Analysis Failed", snap.Failure.Label)
}

func TestContinuationFlow(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	require.Equal(t, http.StatusOK, h.upload(id).Code)

	rec := h.do(http.MethodPost, "/api/sessions/"+id+"/continuation", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "continuation needs a result")

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/sessions/"+id+"/analyze", nil).Code)
	rec = h.do(http.MethodPost, "/api/sessions/"+id+"/continuation", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, session.ViewContinuation, snap.View)

	img := h.do(http.MethodGet, "/api/sessions/"+id+"/image/continuation", nil)
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "continued", img.Body.String())
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))

	rec = h.do(http.MethodPost, "/api/sessions/"+id+"/view", map[string]string{"view": "original"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ViewOriginal, decodeSnapshot(t, rec).View)
}

func TestContinuationFailureLabel(t *testing.T) {
	h := newHarness(t, holdReply)
	h.provider.imageErr = assert.AnError
	id := h.create()
	require.Equal(t, http.StatusOK, h.upload(id).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/sessions/"+id+"/analyze", nil).Code)

	rec := h.do(http.MethodPost, "/api/sessions/"+id+"/continuation", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Generation Failed", decodeError(t, rec).Label)
}

func TestViewerEndpoints(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	base := "/api/sessions/" + id + "/viewer"

	snap := decodeSnapshot(t, h.do(http.MethodPost, base+"/wheel", map[string]float64{"x": 100, "y": 40, "delta_y": -1000}))
	assert.Equal(t, 2.0, snap.Viewport.Scale)
	assert.Equal(t, "translate(-100px, -40px) scale(2)", snap.Transform)

	h.do(http.MethodPost, base+"/pointer", map[string]any{"action": "down", "x": 0, "y": 0})
	snap = decodeSnapshot(t, h.do(http.MethodPost, base+"/pointer", map[string]any{"action": "move", "x": 10, "y": 5}))
	assert.True(t, snap.Viewport.Dragging)
	assert.Equal(t, viewport.Point{X: -90, Y: -35}, snap.Viewport.Offset)

	snap = decodeSnapshot(t, h.do(http.MethodPost, base+"/pointer", map[string]any{"action": "up"}))
	assert.False(t, snap.Viewport.Dragging)

	rec := h.do(http.MethodPost, base+"/pointer", map[string]any{"action": "spin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, op := range []string{"reset", "open", "close"} {
		h.do(http.MethodPost, base+"/wheel", map[string]float64{"x": 1, "y": 1, "delta_y": -500})
		snap = decodeSnapshot(t, h.do(http.MethodPost, base+"/"+op, nil))
		assert.Equal(t, 1.0, snap.Viewport.Scale, op)
		assert.Equal(t, viewport.Point{}, snap.Viewport.Offset, op)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "doc.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4\n"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportInlinesImage(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	require.Equal(t, http.StatusOK, h.upload(id).Code)

	rec := h.do(http.MethodGet, "/api/sessions/"+id+"/export.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	html := string(h.exporter.html)
	assert.Contains(t, html, "data:image/png;base64,")
	assert.NotContains(t, html, "<script>")
}

func TestResetAndDelete(t *testing.T) {
	h := newHarness(t, holdReply)
	id := h.create()
	require.Equal(t, http.StatusOK, h.upload(id).Code)

	snap := decodeSnapshot(t, h.do(http.MethodPost, "/api/sessions/"+id+"/reset", nil))
	assert.Nil(t, snap.Image)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/sessions/"+id, nil).Code)
}

func TestRootRedirectsToNewSession(t *testing.T) {
	h := newHarness(t, holdReply)
	rec := h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/sessions/"))
}
