// Package imaging turns uploaded bytes into a uniform RGB image and derives
// the resized and re-encoded views used by the rest of the pipeline.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/franckalain/caloriesense/internal/models"
)

var (
	// ErrUnsupportedContentType is returned when the declared type is not an image.
	ErrUnsupportedContentType = errors.New("file must be an image")
	// ErrDecode is returned when the bytes are not a decodable image.
	ErrDecode = errors.New("invalid image data")
)

// Image is a decoded upload. Pixels are stored non-premultiplied with alpha
// forced to opaque, which makes the buffer an RGB image whatever the source format.
type Image struct {
	rgb    *image.NRGBA
	format string
}

// Decode validates the declared content type and decodes the upload.
// The content type is checked before any byte is decoded.
func Decode(upload models.UploadedImage) (*Image, error) {
	if !IsImageContentType(upload.ContentType) {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedContentType, upload.ContentType)
	}

	src, format, err := image.Decode(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &Image{rgb: toRGB(src), format: format}, nil
}

// IsImageContentType reports whether a MIME type belongs to the image category.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

func toRGB(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Format is the name of the codec the upload was decoded with ("jpeg", "png", ...).
func (img *Image) Format() string { return img.format }

// Width of the image in pixels
func (img *Image) Width() int { return img.rgb.Bounds().Dx() }

// Height of the image in pixels
func (img *Image) Height() int { return img.rgb.Bounds().Dy() }

// Pixels exposes the underlying buffer. Callers must not modify it.
func (img *Image) Pixels() *image.NRGBA { return img.rgb }

// Resize returns a new view of the image scaled to width x height.
func (img *Image) Resize(width, height int) *Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img.rgb, img.rgb.Bounds(), draw.Src, nil)
	return &Image{rgb: dst, format: img.format}
}

// PNG re-encodes the image for transmission.
func (img *Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.rgb); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI returns a base64 data URI of an encoded PNG.
func DataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}
