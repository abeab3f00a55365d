package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStructure is the single failure kind for results that do not
// match the expected shape.
var ErrInvalidStructure = errors.New("invalid analysis result structure")

// ErrMalformedJSON marks response text that is not JSON at all.
var ErrMalformedJSON = errors.New("malformed analysis JSON")

// ValidationError keeps the individual violations for diagnostics while
// matching ErrInvalidStructure with errors.Is.
type ValidationError struct {
	Violations []Violation
}

// Violation is one failed rule at a JSON pointer location.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	loc := v.Location
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + v.Message
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrInvalidStructure.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidStructure.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidStructure }
