package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

var (
	schemaOnce    sync.Once
	schemaLenient *jsonschema.Schema
	schemaStrict  *jsonschema.Schema
	schemaErr     error
)

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaLenient, schemaStrict, schemaErr = compileSchemas()
	})
	return schemaLenient, schemaStrict, schemaErr
}

// Validator checks untrusted decoded JSON against the result shape.
type Validator struct {
	strict bool
}

// NewValidator returns a lenient validator, or a strict one that also
// requires a known annotation type and a non-empty prediction.
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

// Strict reports the validation mode.
func (v *Validator) Strict() bool {
	return v != nil && v.strict
}

// Validate accepts value only if every rule holds; nothing is partially
// accepted.
func (v *Validator) Validate(value any) (Result, error) {
	lenient, strict, err := schemas()
	if err != nil {
		return Result{}, err
	}
	schema := lenient
	if v.Strict() {
		schema = strict
	}
	value, err = normalize(value)
	if err != nil {
		return Result{}, &ValidationError{Violations: []Violation{{Message: err.Error()}}}
	}
	if err := schema.Validate(value); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return Result{}, &ValidationError{Violations: collectViolations(verr)}
		}
		return Result{}, &ValidationError{Violations: []Violation{{Message: err.Error()}}}
	}
	var out Result
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &out,
	})
	if err != nil {
		return Result{}, err
	}
	if err := dec.Decode(value); err != nil {
		return Result{}, &ValidationError{Violations: []Violation{{Message: err.Error()}}}
	}
	return out, nil
}

// ParseText trims text, decodes it as JSON and validates the value.
func (v *Validator) ParseText(text string) (Result, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Result{}, fmt.Errorf("%w: empty response", ErrMalformedJSON)
	}
	if !gjson.Valid(raw) {
		return Result{}, fmt.Errorf("%w: %s", ErrMalformedJSON, describeInvalidJSON(raw))
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return v.Validate(value)
}

// Validate runs the lenient validator.
func Validate(value any) (Result, error) {
	return NewValidator(false).Validate(value)
}

// normalize converts arbitrary Go values (structs, ints, typed maps) into
// the generic shapes produced by encoding/json.
func normalize(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any, string, float64, bool, nil:
		if !containsForeign(value) {
			return value, nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func containsForeign(value any) bool {
	switch val := value.(type) {
	case map[string]any:
		for _, child := range val {
			if containsForeign(child) {
				return true
			}
		}
		return false
	case []any:
		for _, child := range val {
			if containsForeign(child) {
				return true
			}
		}
		return false
	case string, float64, bool, nil:
		return false
	default:
		return true
	}
}

func describeInvalidJSON(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err.Error()
	}
	return "invalid json"
}

// collectViolations flattens the schema error tree down to its leaves.
func collectViolations(root *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e == nil {
			return
		}
		if len(e.Causes) == 0 {
			out = append(out, Violation{Location: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}
