package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/analysis"
	"tradescope/internal/inference"
	"tradescope/internal/upload"
	"tradescope/internal/viewport"
)

type fakeInference struct {
	analyze   func(ctx context.Context, img upload.Image) (analysis.Result, error)
	continueF func(ctx context.Context, img upload.Image, prior analysis.Result) (inference.ContinuationImage, error)
	calls     int
}

func (f *fakeInference) Analyze(ctx context.Context, img upload.Image) (analysis.Result, error) {
	f.calls++
	return f.analyze(ctx, img)
}

func (f *fakeInference) Continue(ctx context.Context, img upload.Image, prior analysis.Result) (inference.ContinuationImage, error) {
	f.calls++
	return f.continueF(ctx, img, prior)
}

var holdResult = analysis.Result{
	Prediction:     "Range-bound consolidation",
	Recommendation: analysis.Hold,
	Confidence:     55,
	Rationale:      "No clear breakout.",
	Annotation: analysis.Annotation{
		Type:  analysis.Line,
		Start: analysis.Point{X: 10, Y: 50},
		End:   analysis.Point{X: 90, Y: 50},
	},
}

var chart = upload.Image{Data: []byte("png"), MIMEType: "image/png", Width: 300, Height: 200}

func newTestSession(f *fakeInference) *Session {
	return newSession("s1", f, viewport.DefaultConfig(), time.Now())
}

func TestAnalyzeWithoutImage(t *testing.T) {
	f := &fakeInference{}
	s := newTestSession(f)
	_, err := s.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Zero(t, f.calls)
}

func TestAnalyzeHoldScenario(t *testing.T) {
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) { return holdResult, nil }}
	s := newTestSession(f)
	s.Upload(chart)
	s.Viewport(func(e *viewport.Engine) { e.Resize(viewport.Size{Width: 300, Height: 200}) })

	res, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, holdResult, res)

	snap := s.Snapshot()
	require.NotNil(t, snap.Panel)
	assert.Equal(t, "hold", snap.Panel.Style.Class)
	assert.Equal(t, 55.0, snap.Panel.Confidence)
	require.NotNil(t, snap.Overlay)
	require.NotNil(t, snap.Overlay.ScreenStart)
	assert.InDelta(t, 30, snap.Overlay.ScreenStart.X, 1e-9)
	assert.InDelta(t, 100, snap.Overlay.ScreenStart.Y, 1e-9)
	assert.InDelta(t, 270, snap.Overlay.ScreenEnd.X, 1e-9)
	assert.Nil(t, snap.Failure)
	assert.True(t, snap.CanContinue())
}

func TestAnalyzeFailureLabel(t *testing.T) {
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) {
		return analysis.Result{}, fmt.Errorf("%w: boom", inference.ErrAnalysisFailed)
	}}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.ErrorIs(t, err, inference.ErrAnalysisFailed)

	snap := s.Snapshot()
	require.NotNil(t, snap.Failure)
	assert.Equal(t, LabelAnalysisFailed, snap.Failure.Label)
	assert.Equal(t, "analysis failed: boom", snap.Failure.Message)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.Analyzing)
}

func TestAnalyzeFailureDropsPriorResult(t *testing.T) {
	replies := []error{nil, fmt.Errorf("%w: %w", inference.ErrAnalysisFailed, analysis.ErrInvalidStructure)}
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) {
		err := replies[0]
		replies = replies[1:]
		if err != nil {
			return analysis.Result{}, err
		}
		return holdResult, nil
	}}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Snapshot().Panel)

	_, err = s.Analyze(context.Background())
	require.ErrorIs(t, err, inference.ErrAnalysisFailed)

	snap := s.Snapshot()
	require.NotNil(t, snap.Failure)
	assert.Equal(t, LabelAnalysisFailed, snap.Failure.Label)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Panel)
	assert.Nil(t, snap.Overlay)
	assert.False(t, snap.CanContinue())
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestAnalyzeBusyAndStale(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) {
		close(started)
		<-release
		return holdResult, nil
	}}
	s := newTestSession(f)
	s.Upload(chart)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-started

	_, err := s.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, s.Snapshot().Analyzing)

	s.Reset()
	close(release)
	assert.ErrorIs(t, <-errc, ErrStale)

	snap := s.Snapshot()
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Image)
	assert.False(t, snap.Analyzing)
}

func TestContinueRequiresResult(t *testing.T) {
	f := &fakeInference{}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Continue(context.Background())
	assert.ErrorIs(t, err, ErrNoResult)
	assert.Zero(t, f.calls)
}

func TestContinueFlow(t *testing.T) {
	gen := inference.ContinuationImage{Data: []byte("next"), MIMEType: "image/png"}
	f := &fakeInference{
		analyze: func(context.Context, upload.Image) (analysis.Result, error) { return holdResult, nil },
		continueF: func(_ context.Context, img upload.Image, prior analysis.Result) (inference.ContinuationImage, error) {
			assert.Equal(t, chart.Data, img.Data)
			assert.Equal(t, holdResult, prior)
			return gen, nil
		},
	}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)
	s.Viewport(func(e *viewport.Engine) { e.Wheel(viewport.Point{X: 5, Y: 5}, -1000) })

	_, err = s.Continue(context.Background())
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, ViewContinuation, snap.View)
	assert.Equal(t, 1.0, snap.Viewport.Scale)
	assert.Nil(t, snap.Overlay)

	data, mt, err := s.Image(ViewContinuation)
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), data)
	assert.Equal(t, "image/png", mt)

	s.Viewport(func(e *viewport.Engine) { e.Wheel(viewport.Point{X: 5, Y: 5}, -1000) })
	require.NoError(t, s.SetView(ViewOriginal))
	snap = s.Snapshot()
	assert.Equal(t, 1.0, snap.Viewport.Scale)
	assert.NotNil(t, snap.Overlay)
}

func TestReanalyzeDropsPendingContinuation(t *testing.T) {
	sellResult := holdResult
	sellResult.Recommendation = analysis.Sell
	recs := []analysis.Result{holdResult, sellResult}
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeInference{
		analyze: func(context.Context, upload.Image) (analysis.Result, error) {
			res := recs[0]
			recs = recs[1:]
			return res, nil
		},
		continueF: func(_ context.Context, _ upload.Image, prior analysis.Result) (inference.ContinuationImage, error) {
			close(started)
			<-release
			return inference.ContinuationImage{Data: []byte("cont-for-" + string(prior.Recommendation)), MIMEType: "image/png"}, nil
		},
	}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Continue(context.Background())
		errc <- err
	}()
	<-started

	res, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, analysis.Sell, res.Recommendation)

	close(release)
	assert.ErrorIs(t, <-errc, ErrStale)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, analysis.Sell, snap.Result.Recommendation)
	assert.Equal(t, ViewOriginal, snap.View)
	assert.Nil(t, snap.Continuation)
	assert.False(t, snap.Generating)
	assert.True(t, snap.CanContinue())
}

func TestContinueBusyWhileAnalyzing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) {
		if first {
			first = false
			return holdResult, nil
		}
		close(started)
		<-release
		return holdResult, nil
	}}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-started

	_, err = s.Continue(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, s.Snapshot().CanContinue())

	close(release)
	require.NoError(t, <-errc)
	assert.True(t, s.Snapshot().CanContinue())
}

func TestCanContinue(t *testing.T) {
	res := holdResult
	assert.True(t, Snapshot{Result: &res}.CanContinue())
	assert.False(t, Snapshot{Result: &res, Analyzing: true}.CanContinue())
	assert.False(t, Snapshot{Result: &res, Generating: true}.CanContinue())
	assert.False(t, Snapshot{}.CanContinue())
}

func TestContinueNoImageProducedKeepsOriginal(t *testing.T) {
	f := &fakeInference{
		analyze: func(context.Context, upload.Image) (analysis.Result, error) { return holdResult, nil },
		continueF: func(context.Context, upload.Image, analysis.Result) (inference.ContinuationImage, error) {
			return inference.ContinuationImage{}, inference.ErrNoImageProduced
		},
	}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)
	_, err = s.Continue(context.Background())
	require.True(t, errors.Is(err, inference.ErrNoImageProduced))

	snap := s.Snapshot()
	assert.Equal(t, ViewOriginal, snap.View)
	assert.Nil(t, snap.Continuation)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, LabelGenerationFailed, snap.Failure.Label)
	assert.NotNil(t, snap.Result)
}

func TestUploadReplacesEverything(t *testing.T) {
	f := &fakeInference{analyze: func(context.Context, upload.Image) (analysis.Result, error) { return holdResult, nil }}
	s := newTestSession(f)
	s.Upload(chart)
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)

	s.Upload(upload.Image{Data: []byte("jpg"), MIMEType: "image/jpeg"})
	snap := s.Snapshot()
	assert.Nil(t, snap.Result)
	assert.Equal(t, "image/jpeg", snap.Image.MIMEType)
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestSetViewErrors(t *testing.T) {
	s := newTestSession(&fakeInference{})
	assert.ErrorIs(t, s.SetView(ViewContinuation), ErrNoContinuation)
	assert.ErrorIs(t, s.SetView("sideways"), ErrUnknownView)
	_, _, err := s.Image(ViewOriginal)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, "buy", StyleFor(analysis.Buy).Class)
	assert.Equal(t, "sell", StyleFor(analysis.Sell).Class)
	assert.Equal(t, "neutral", StyleFor("STRONG_BUY").Class)
}
