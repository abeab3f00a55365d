package session

import (
	"time"

	"tradescope/internal/analysis"
	"tradescope/internal/viewport"
)

// ImageInfo describes a held image without its bytes.
type ImageInfo struct {
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Panel is the result card.
type Panel struct {
	Recommendation analysis.Recommendation `json:"recommendation"`
	Style          Style                   `json:"style"`
	Confidence     float64                 `json:"confidence"`
	Prediction     string                  `json:"prediction"`
	Rationale      string                  `json:"rationale"`
}

// Snapshot is a render-ready copy of the session state.
type Snapshot struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	View         View              `json:"view"`
	Image        *ImageInfo        `json:"image,omitempty"`
	Continuation *ImageInfo        `json:"continuation,omitempty"`
	Analyzing    bool              `json:"analyzing"`
	Generating   bool              `json:"generating"`
	Result       *analysis.Result  `json:"result,omitempty"`
	Panel        *Panel            `json:"panel,omitempty"`
	Viewport     viewport.State    `json:"viewport"`
	Transform    string            `json:"transform"`
	Overlay      *viewport.Overlay `json:"overlay,omitempty"`
	Failure      *Failure          `json:"failure,omitempty"`
}

// CanContinue reports whether a continuation may be requested.
func (s Snapshot) CanContinue() bool {
	return s.Result != nil && !s.Analyzing && !s.Generating
}

// Snapshot copies the state. The overlay belongs to the original image and is
// omitted while the continuation is shown.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		CreatedAt:  s.created,
		View:       s.view,
		Analyzing:  s.analyzing,
		Generating: s.generating,
		Viewport:   s.viewport.State(),
		Transform:  s.viewport.Transform(),
	}
	if !s.image.IsZero() {
		snap.Image = &ImageInfo{
			MIMEType: s.image.MIMEType,
			Bytes:    len(s.image.Data),
			Width:    s.image.Width,
			Height:   s.image.Height,
		}
	}
	if !s.continuation.IsZero() {
		snap.Continuation = &ImageInfo{MIMEType: s.continuation.MIMEType, Bytes: len(s.continuation.Data)}
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
		snap.Panel = &Panel{
			Recommendation: res.Recommendation,
			Style:          StyleFor(res.Recommendation),
			Confidence:     res.Confidence,
			Prediction:     res.Prediction,
			Rationale:      res.Rationale,
		}
		if s.view == ViewOriginal {
			ov := s.viewport.Overlay(res.Annotation)
			snap.Overlay = &ov
		}
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
	}
	return snap
}
