// Package analysis defines the chart analysis result returned by the
// inference service and validates it before anything else may use it.
package analysis

// Recommendation is the categorical trading suggestion.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// Recommendations lists the accepted literals in declaration order.
var Recommendations = []Recommendation{Buy, Sell, Hold}

// Valid reports whether r is one of the three literals (case sensitive).
func (r Recommendation) Valid() bool {
	switch r {
	case Buy, Sell, Hold:
		return true
	}
	return false
}

// AnnotationType is the shape of the directional marker.
type AnnotationType string

const (
	Arrow AnnotationType = "arrow"
	Line  AnnotationType = "line"
)

var AnnotationTypes = []AnnotationType{Arrow, Line}

// Point is expressed in percent (0-100) of the image box, origin top-left.
type Point struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

type Annotation struct {
	Type  AnnotationType `json:"type" mapstructure:"type"`
	Start Point          `json:"start" mapstructure:"start"`
	End   Point          `json:"end" mapstructure:"end"`
}

// Result is a validated analysis. Confidence is semantically 0-100 but is
// kept exactly as returned.
type Result struct {
	Prediction     string         `json:"prediction" mapstructure:"prediction"`
	Recommendation Recommendation `json:"recommendation" mapstructure:"recommendation"`
	Confidence     float64        `json:"confidence" mapstructure:"confidence"`
	Rationale      string         `json:"rationale" mapstructure:"rationale"`
	Annotation     Annotation     `json:"annotation" mapstructure:"annotation"`
}

// IsZero reports whether r carries no analysis at all.
func (r Result) IsZero() bool {
	return r.Prediction == "" && r.Recommendation == "" && r.Rationale == ""
}
