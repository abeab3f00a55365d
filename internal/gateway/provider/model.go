package provider

import (
	"context"
	"encoding/base64"
	"errors"
)

// Modality names an output kind the service is asked to produce.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
)

// ErrImageOutputUnsupported is returned when image output is requested from a
// provider that cannot produce it.
var ErrImageOutputUnsupported = errors.New("provider does not support image output")

// Part is one element of a multimodal message: either text or an inline blob.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part { return Part{Text: text} }

func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBlob reports whether p carries inline binary data.
func (p Part) IsBlob() bool { return len(p.Data) > 0 }

// DataURI renders an inline blob as a base64 data URI.
func (p Part) DataURI() string {
	if !p.IsBlob() {
		return ""
	}
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// SchemaType mirrors the OpenAPI subset understood by structured output.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeArray   SchemaType = "array"
	TypeBoolean SchemaType = "boolean"
)

// Schema declares the structured output shape requested from the service.
type Schema struct {
	Type        SchemaType
	Description string
	Enum        []string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	// Order is the preferred property order; providers that support it use it.
	Order []string
}

// Request is a single generate call.
type Request struct {
	Model       string
	Purpose     string
	Parts       []Part
	Temperature *float32
	Schema      *Schema
	Modalities  []Modality
}

// WantsImage reports whether image output was requested.
func (r Request) WantsImage() bool {
	for _, m := range r.Modalities {
		if m == ModalityImage {
			return true
		}
	}
	return false
}

// Response holds the concatenated text and every returned part in order.
type Response struct {
	Text  string
	Parts []Part
}

// FirstBlob returns the first inline-data part.
func (r Response) FirstBlob() (Part, bool) {
	for _, p := range r.Parts {
		if p.IsBlob() {
			return p, true
		}
	}
	return Part{}, false
}

// ModelProvider is the narrow boundary to the external inference service.
type ModelProvider interface {
	ID() string
	SupportsImageOutput() bool
	Generate(ctx context.Context, req Request) (Response, error)
}
