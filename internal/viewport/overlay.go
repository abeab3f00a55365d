package viewport

import "tradescope/internal/analysis"

// ViewBox is the SVG coordinate system of the overlay: annotation percents
// are used as-is and the SVG is stretched over the image box.
const ViewBox = "0 0 100 100"

// Overlay is the render-ready geometry of one annotation.
type Overlay struct {
	ViewBox     string                  `json:"view_box"`
	Type        analysis.AnnotationType `json:"type"`
	X1          float64                 `json:"x1"`
	Y1          float64                 `json:"y1"`
	X2          float64                 `json:"x2"`
	Y2          float64                 `json:"y2"`
	StrokeWidth float64                 `json:"stroke_width"`
	ArrowHead   bool                    `json:"arrow_head"`
	Transform   string                  `json:"transform"`
	// Screen positions of the endpoints; only set once the box size is known.
	ScreenStart *Point `json:"screen_start,omitempty"`
	ScreenEnd   *Point `json:"screen_end,omitempty"`
}

// Overlay maps a into the current transform. Unknown annotation types are
// drawn as plain lines.
func (e *Engine) Overlay(a analysis.Annotation) Overlay {
	o := Overlay{
		ViewBox:     ViewBox,
		Type:        a.Type,
		X1:          a.Start.X,
		Y1:          a.Start.Y,
		X2:          a.End.X,
		Y2:          a.End.Y,
		StrokeWidth: e.StrokeWidth(),
		ArrowHead:   a.Type == analysis.Arrow,
		Transform:   e.Transform(),
	}
	if !e.box.Empty() {
		start := e.ToScreen(e.box.PercentPoint(a.Start.X, a.Start.Y))
		end := e.ToScreen(e.box.PercentPoint(a.End.X, a.End.Y))
		o.ScreenStart, o.ScreenEnd = &start, &end
	}
	return o
}
