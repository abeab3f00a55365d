// Package render produces the auxiliary views of a session: the confidence
// gauge page and a PNG snapshot of the rendered session view.
package render

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#0b1220"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"

	gaugeWidthPx  = 420
	gaugeHeightPx = 320
)

// GaugeInput is the data shown on the confidence gauge.
type GaugeInput struct {
	Recommendation string
	Confidence     float64
	// Color is the recommendation accent, e.g. "#16a34a".
	Color string
}

// RenderGauge writes a standalone HTML page with a confidence gauge.
func RenderGauge(w io.Writer, in GaugeInput) error {
	if math.IsNaN(in.Confidence) || math.IsInf(in.Confidence, 0) {
		return fmt.Errorf("confidence must be finite")
	}
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", gaugeWidthPx),
			Height:          fmt.Sprintf("%dpx", gaugeHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         in.Recommendation,
			Subtitle:      "confidence",
			Left:          "center",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
	)
	gauge.AddSeries("confidence",
		[]opts.GaugeData{{Name: in.Recommendation, Value: round(in.Confidence, 1)}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: in.Color}),
	)

	page := components.NewPage()
	page.AddCharts(gauge)
	return page.Render(w)
}

// GaugeHTML is RenderGauge into a byte slice.
func GaugeHTML(in GaugeInput) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderGauge(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func round(val float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(val*p) / p
}
