package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const holdPayload = `{
  "prediction": "sideways drift",
  "recommendation": "HOLD",
  "confidence": 55,
  "rationale": "range bound between support and resistance",
  "annotation": {"type": "line", "start": {"x": 10, "y": 50}, "end": {"x": 90, "y": 55}}
}`

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidateAcceptsWithoutMutation(t *testing.T) {
	got, err := Validate(decode(t, holdPayload))
	require.NoError(t, err)
	assert.Equal(t, Result{
		Prediction:     "sideways drift",
		Recommendation: Hold,
		Confidence:     55,
		Rationale:      "range bound between support and resistance",
		Annotation: Annotation{
			Type:  Line,
			Start: Point{X: 10, Y: 50},
			End:   Point{X: 90, Y: 55},
		},
	}, got)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	paths := [][]string{
		{"prediction"},
		{"recommendation"},
		{"confidence"},
		{"rationale"},
		{"annotation"},
		{"annotation", "type"},
		{"annotation", "start"},
		{"annotation", "end"},
		{"annotation", "start", "x"},
		{"annotation", "end", "y"},
	}
	for _, path := range paths {
		t.Run(joinPath(path), func(t *testing.T) {
			v := decode(t, holdPayload)
			deleteAt(v, path)
			_, err := Validate(v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidStructure))
		})
	}
}

func TestValidateRecommendationIsExact(t *testing.T) {
	for _, rec := range []string{"STRONG_BUY", "buy", "Hold", "", "WAIT"} {
		v := decode(t, holdPayload)
		v["recommendation"] = rec
		_, err := Validate(v)
		assert.ErrorIs(t, err, ErrInvalidStructure, "recommendation %q", rec)
	}
	for _, rec := range Recommendations {
		v := decode(t, holdPayload)
		v["recommendation"] = string(rec)
		res, err := Validate(v)
		require.NoError(t, err)
		assert.Equal(t, rec, res.Recommendation)
	}
}

func TestValidateConfidenceIsNotClamped(t *testing.T) {
	for _, c := range []float64{-3, 0, 100, 150.5} {
		v := decode(t, holdPayload)
		v["confidence"] = c
		res, err := Validate(v)
		require.NoError(t, err)
		assert.Equal(t, c, res.Confidence)
	}
	v := decode(t, holdPayload)
	v["confidence"] = "55"
	_, err := Validate(v)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestValidateRejectsNonNumericPoints(t *testing.T) {
	v := decode(t, holdPayload)
	v["annotation"].(map[string]any)["start"].(map[string]any)["x"] = "10"
	_, err := Validate(v)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.Violations)
	assert.Equal(t, "/annotation/start/x", verr.Violations[0].Location)
}

func TestValidatorStrictMode(t *testing.T) {
	v := decode(t, holdPayload)
	v["annotation"].(map[string]any)["type"] = "curve"

	_, err := NewValidator(false).Validate(v)
	assert.NoError(t, err, "lenient mode does not check the annotation variant")

	_, err = NewValidator(true).Validate(v)
	assert.ErrorIs(t, err, ErrInvalidStructure)

	v = decode(t, holdPayload)
	v["prediction"] = ""
	_, err = NewValidator(false).Validate(v)
	assert.NoError(t, err)
	_, err = NewValidator(true).Validate(v)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestValidateAcceptsGoValues(t *testing.T) {
	res, err := Validate(map[string]any{
		"prediction":     "breakout",
		"recommendation": "BUY",
		"confidence":     80,
		"rationale":      "higher highs",
		"annotation": map[string]any{
			"type":  "arrow",
			"start": map[string]int{"x": 20, "y": 70},
			"end":   map[string]int{"x": 80, "y": 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, res.Confidence)
	assert.Equal(t, Point{X: 80, Y: 20}, res.Annotation.End)
}

func TestParseText(t *testing.T) {
	v := NewValidator(false)

	res, err := v.ParseText("\n\t " + holdPayload + " \n")
	require.NoError(t, err)
	assert.Equal(t, Hold, res.Recommendation)

	_, err = v.ParseText(`{"prediction": "cut off`)
	assert.ErrorIs(t, err, ErrMalformedJSON)
	assert.False(t, errors.Is(err, ErrInvalidStructure))

	_, err = v.ParseText("   ")
	assert.ErrorIs(t, err, ErrMalformedJSON)

	_, err = v.ParseText(`[1, 2, 3]`)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Violations: []Violation{{Location: "/recommendation", Message: "value must be one of"}}}
	assert.Equal(t, "invalid analysis result structure: /recommendation: value must be one of", err.Error())
	assert.Equal(t, ErrInvalidStructure.Error(), (&ValidationError{}).Error())
}

func joinPath(path []string) string {
	out := ""
	for _, p := range path {
		out += "/" + p
	}
	return out
}

func deleteAt(v map[string]any, path []string) {
	node := v
	for _, p := range path[:len(path)-1] {
		node = node[p].(map[string]any)
	}
	delete(node, path[len(path)-1])
}
