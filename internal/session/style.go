package session

import "tradescope/internal/analysis"

// Failure labels shown next to the error message.
const (
	LabelAnalysisFailed   = "Analysis Failed"
	LabelGenerationFailed = "Generation Failed"
)

// Style is the visual treatment of a recommendation.
type Style struct {
	Class string `json:"class"`
	Color string `json:"color"`
}

var styles = map[analysis.Recommendation]Style{
	analysis.Buy:  {Class: "buy", Color: "#16a34a"},
	analysis.Sell: {Class: "sell", Color: "#dc2626"},
	analysis.Hold: {Class: "hold", Color: "#d97706"},
}

// StyleFor returns the styling of r; unknown values get a neutral style.
func StyleFor(r analysis.Recommendation) Style {
	if s, ok := styles[r]; ok {
		return s
	}
	return Style{Class: "neutral", Color: "#6b7280"}
}
