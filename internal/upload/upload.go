// Package upload turns user-supplied bytes into a session image.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedType is returned for anything that is not PNG, JPEG or WebP.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrEmpty is returned when no bytes were supplied.
var ErrEmpty = errors.New("empty image")

var accepted = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Image is an uploaded chart. Data is never modified after capture.
type Image struct {
	Data     []byte
	MIMEType string
	// Width and Height are the native pixel dimensions, 0 when the header
	// could not be read.
	Width  int
	Height int
}

// FromBytes sniffs the content type and reads the image header. The declared
// MIME type is only used when sniffing yields nothing more specific.
func FromBytes(data []byte, declaredMIME string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	if !accepted[mt] {
		declared := normalizeMIME(declaredMIME)
		if mt != "application/octet-stream" || !accepted[declared] {
			return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
		}
		mt = declared
	}
	img := Image{Data: data, MIMEType: mt}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
	}
	return img, nil
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}

// IsZero reports whether no image is held.
func (i Image) IsZero() bool { return len(i.Data) == 0 }

// Summary is a one-line description used in logs and transcripts.
func (i Image) Summary() string {
	if i.Width > 0 && i.Height > 0 {
		return fmt.Sprintf("%s %d bytes %dx%d", i.MIMEType, len(i.Data), i.Width, i.Height)
	}
	return fmt.Sprintf("%s %d bytes", i.MIMEType, len(i.Data))
}
