// Package session holds the per-user presentation state: the uploaded chart,
// the analysis, the continuation image and the viewer transform.
package session

import (
	"context"
	"sync"
	"time"

	"tradescope/internal/analysis"
	"tradescope/internal/inference"
	"tradescope/internal/logger"
	"tradescope/internal/upload"
	"tradescope/internal/viewport"
)

// Inference is the subset of the inference client a session drives.
type Inference interface {
	Analyze(ctx context.Context, img upload.Image) (analysis.Result, error)
	Continue(ctx context.Context, img upload.Image, prior analysis.Result) (inference.ContinuationImage, error)
}

// View selects which image the viewer shows.
type View string

const (
	ViewOriginal     View = "original"
	ViewContinuation View = "continuation"
)

// Failure is the last user-visible error.
type Failure struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Session is safe for concurrent use. The inference calls run without holding
// the lock; a generation counter detects resets that happened meanwhile.
type Session struct {
	id      string
	created time.Time
	infer   Inference

	mu           sync.Mutex
	touched      time.Time
	image        upload.Image
	result       *analysis.Result
	continuation inference.ContinuationImage
	failure      *Failure
	view         View
	viewport     *viewport.Engine
	analyzing    bool
	generating   bool
	generation   uint64
}

func newSession(id string, infer Inference, vcfg viewport.Config, now time.Time) *Session {
	return &Session{
		id:       id,
		created:  now,
		touched:  now,
		infer:    infer,
		view:     ViewOriginal,
		viewport: viewport.New(vcfg),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

// idleSince reports the last access time and whether a call is in flight.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched, s.analyzing || s.generating
}

// Upload replaces the image and drops everything derived from the old one.
func (s *Session) Upload(img upload.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.image = img
	logger.Debugf("session %s: image uploaded %s", s.id, img.Summary())
}

// Reset discards the image, the results and any failure.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.image = upload.Image{}
}

func (s *Session) clearLocked() {
	s.dropResultLocked()
	s.analyzing = false
}

// dropResultLocked discards the result and everything derived from it. The
// generation bump makes any outstanding continuation stale.
func (s *Session) dropResultLocked() {
	s.generation++
	s.result = nil
	s.continuation = inference.ContinuationImage{}
	s.failure = nil
	s.generating = false
	s.view = ViewOriginal
	s.viewport.Reset()
}

// Analyze runs one analysis of the current image. The previous result and
// its continuation are discarded when the call starts.
func (s *Session) Analyze(ctx context.Context) (analysis.Result, error) {
	s.mu.Lock()
	if s.image.IsZero() {
		s.mu.Unlock()
		return analysis.Result{}, ErrNoImage
	}
	if s.analyzing {
		s.mu.Unlock()
		return analysis.Result{}, ErrBusy
	}
	s.dropResultLocked()
	s.analyzing = true
	gen := s.generation
	img := s.image
	s.mu.Unlock()

	res, err := s.infer.Analyze(ctx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		logger.Infof("session %s: dropped analysis response after reset", s.id)
		return analysis.Result{}, ErrStale
	}
	s.analyzing = false
	if err != nil {
		s.failure = &Failure{Label: LabelAnalysisFailed, Message: err.Error()}
		return analysis.Result{}, err
	}
	s.result = &res
	return res, nil
}

// Continue generates the continuation image from the current result.
func (s *Session) Continue(ctx context.Context) (inference.ContinuationImage, error) {
	s.mu.Lock()
	if s.image.IsZero() {
		s.mu.Unlock()
		return inference.ContinuationImage{}, ErrNoImage
	}
	if s.analyzing {
		s.mu.Unlock()
		return inference.ContinuationImage{}, ErrBusy
	}
	if s.result == nil {
		s.mu.Unlock()
		return inference.ContinuationImage{}, ErrNoResult
	}
	if s.generating {
		s.mu.Unlock()
		return inference.ContinuationImage{}, ErrBusy
	}
	s.generating = true
	gen := s.generation
	img := s.image
	prior := *s.result
	s.mu.Unlock()

	out, err := s.infer.Continue(ctx, img, prior)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		logger.Infof("session %s: dropped continuation response after reset", s.id)
		return inference.ContinuationImage{}, ErrStale
	}
	s.generating = false
	if err != nil {
		s.failure = &Failure{Label: LabelGenerationFailed, Message: err.Error()}
		return inference.ContinuationImage{}, err
	}
	s.continuation = out
	s.failure = nil
	s.view = ViewContinuation
	s.viewport.Reset()
	return out, nil
}

// SetView switches the displayed image and resets the viewer.
func (s *Session) SetView(v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v {
	case ViewOriginal:
	case ViewContinuation:
		if s.continuation.IsZero() {
			return ErrNoContinuation
		}
	default:
		return ErrUnknownView
	}
	s.view = v
	s.viewport.Reset()
	return nil
}

// Viewport applies fn to the viewer engine under the session lock.
func (s *Session) Viewport(fn func(e *viewport.Engine)) viewport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.viewport)
	return s.viewport.State()
}

// Image returns the bytes of the requested view.
func (s *Session) Image(v View) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v {
	case ViewOriginal:
		if s.image.IsZero() {
			return nil, "", ErrNoImage
		}
		return s.image.Data, s.image.MIMEType, nil
	case ViewContinuation:
		if s.continuation.IsZero() {
			return nil, "", ErrNoContinuation
		}
		return s.continuation.Data, s.continuation.MIMEType, nil
	}
	return nil, "", ErrUnknownView
}

// Result returns the current analysis, if any.
func (s *Session) Result() (analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return analysis.Result{}, false
	}
	return *s.result, true
}
