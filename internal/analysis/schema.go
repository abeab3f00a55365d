package analysis

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	lenientURL = "https://tradescope.local/schemas/analysis-lenient.json"
	strictURL  = "https://tradescope.local/schemas/analysis-strict.json"
)

// lenientSchema accepts any numeric confidence and any annotation type string.
const lenientSchema = `{
  "type": "object",
  "required": ["prediction", "recommendation", "confidence", "rationale", "annotation"],
  "properties": {
    "prediction": {"type": "string"},
    "recommendation": {"enum": ["BUY", "SELL", "HOLD"]},
    "confidence": {"type": "number"},
    "rationale": {"type": "string"},
    "annotation": {
      "type": "object",
      "required": ["type", "start", "end"],
      "properties": {
        "type": {"type": "string"},
        "start": {"$ref": "#/$defs/point"},
        "end": {"$ref": "#/$defs/point"}
      }
    }
  },
  "$defs": {
    "point": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": {"type": "number"},
        "y": {"type": "number"}
      }
    }
  }
}`

// strictSchema tightens the lenient one on the prediction text and the
// annotation variants.
const strictSchema = `{
  "allOf": [{"$ref": "` + lenientURL + `"}],
  "properties": {
    "prediction": {"minLength": 1},
    "annotation": {
      "properties": {
        "type": {"enum": ["arrow", "line"]}
      }
    }
  }
}`

func compileSchemas() (lenient, strict *jsonschema.Schema, err error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(lenientURL, strings.NewReader(lenientSchema)); err != nil {
		return nil, nil, fmt.Errorf("add lenient schema: %w", err)
	}
	if err := compiler.AddResource(strictURL, strings.NewReader(strictSchema)); err != nil {
		return nil, nil, fmt.Errorf("add strict schema: %w", err)
	}
	if lenient, err = compiler.Compile(lenientURL); err != nil {
		return nil, nil, fmt.Errorf("compile lenient schema: %w", err)
	}
	if strict, err = compiler.Compile(strictURL); err != nil {
		return nil, nil, fmt.Errorf("compile strict schema: %w", err)
	}
	return lenient, strict, nil
}
