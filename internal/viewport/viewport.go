// Package viewport implements the zoom and pan transform of the chart viewer
// and maps percent-based annotations into it.
//
// A screen point is offset + scale·p for an image point p, with the
// transform origin at the container's top-left corner.
package viewport

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point     { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Size is the rendered size of the image box in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// PercentPoint converts percent coordinates to pixels inside the box.
func (s Size) PercentPoint(x, y float64) Point {
	return Point{X: x / 100 * s.Width, Y: y / 100 * s.Height}
}

type Config struct {
	MinScale         float64
	MaxScale         float64
	WheelSensitivity float64
	// StrokeWidth is the base overlay stroke in viewBox units at scale 1.
	StrokeWidth float64
}

func DefaultConfig() Config {
	return Config{MinScale: 1, MaxScale: 8, WheelSensitivity: 0.001, StrokeWidth: 0.6}
}

func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale < c.MinScale {
		c.MaxScale = math.Max(def.MaxScale, c.MinScale)
	}
	if c.WheelSensitivity <= 0 {
		c.WheelSensitivity = def.WheelSensitivity
	}
	if c.StrokeWidth <= 0 {
		c.StrokeWidth = def.StrokeWidth
	}
	return c
}

// State is a copy of the engine state for rendering.
type State struct {
	Scale    float64 `json:"scale"`
	Offset   Point   `json:"offset"`
	Dragging bool    `json:"dragging"`
	Box      Size    `json:"box"`
}

// Engine holds one viewer's transform. It is not safe for concurrent use;
// callers serialize access.
type Engine struct {
	cfg      Config
	scale    float64
	offset   Point
	dragging bool
	anchor   Point
	box      Size
}

func New(cfg Config) *Engine {
	e := &Engine{cfg: cfg.sanitized()}
	e.Reset()
	return e
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) State() State {
	return State{Scale: e.scale, Offset: e.offset, Dragging: e.dragging, Box: e.box}
}

func (e *Engine) Scale() float64 { return e.scale }
func (e *Engine) Offset() Point  { return e.offset }
func (e *Engine) Dragging() bool { return e.dragging }

// Wheel zooms around p, keeping the image point under p fixed. It reports
// whether the state changed.
func (e *Engine) Wheel(p Point, deltaY float64) bool {
	next := e.clamp(e.scale * (1 - deltaY*e.cfg.WheelSensitivity))
	if next == e.scale {
		return false
	}
	if next == e.cfg.MinScale {
		e.rest(next)
		return true
	}
	img := p.Sub(e.offset).Scale(1 / e.scale)
	e.offset = p.Sub(img.Scale(next))
	e.scale = next
	return true
}

func (e *Engine) clamp(s float64) float64 {
	if math.IsNaN(s) || s < e.cfg.MinScale {
		return e.cfg.MinScale
	}
	if s > e.cfg.MaxScale {
		return e.cfg.MaxScale
	}
	return s
}

// PointerDown starts a drag; ignored at or below the rest scale.
func (e *Engine) PointerDown(p Point) bool {
	if e.scale <= e.cfg.MinScale {
		return false
	}
	e.dragging = true
	e.anchor = p.Sub(e.offset)
	return true
}

func (e *Engine) PointerMove(p Point) bool {
	if !e.dragging {
		return false
	}
	e.offset = p.Sub(e.anchor)
	return true
}

func (e *Engine) PointerUp()    { e.dragging = false }
func (e *Engine) PointerLeave() { e.dragging = false }

// Reset returns to scale 1 with no offset and no drag.
func (e *Engine) Reset() { e.rest(e.cfg.MinScale) }

// Open and Close of the expanded viewer both start from the rest state.
func (e *Engine) Open()  { e.Reset() }
func (e *Engine) Close() { e.Reset() }

func (e *Engine) rest(scale float64) {
	e.scale = scale
	e.offset = Point{}
	e.anchor = Point{}
	e.dragging = false
}

// Resize records the rendered image box used for pixel mappings.
func (e *Engine) Resize(box Size) { e.box = box }

func (e *Engine) Box() Size { return e.box }

// ToScreen maps an image-space pixel to container coordinates.
func (e *Engine) ToScreen(p Point) Point { return e.offset.Add(p.Scale(e.scale)) }

// ToImage is the inverse of ToScreen.
func (e *Engine) ToImage(p Point) Point { return p.Sub(e.offset).Scale(1 / e.scale) }

// Transform is the CSS transform applied to both the image and the overlay.
func (e *Engine) Transform() string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)", num(e.offset.X), num(e.offset.Y), num(e.scale))
}

// StrokeWidth keeps the overlay stroke visually constant while zooming.
func (e *Engine) StrokeWidth() float64 { return e.cfg.StrokeWidth / e.scale }

func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0
	}
	return fmt.Sprintf("%g", v)
}
