// Package imagex shrinks document photos before upload.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

var ErrUnsupportedMIMEType = errors.New("unsupported MIME type")

// DefaultMaxWidth is wide enough for the 3x4 photo slot on a printed form.
const DefaultMaxWidth = 600

type (
	decoder func(io.Reader) (image.Image, error)
	encoder func(io.Writer, image.Image) error
)

func codecs(ctype string) (decoder, encoder, error) {
	switch strings.ToLower(ctype) {
	case "image/jpeg", "image/jpg":
		return jpeg.Decode, func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 90})
		}, nil
	case "image/png":
		return png.Decode, png.Encode, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedMIMEType, ctype)
}

// ContentType sniffs the MIME type of data.
func ContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Downscale resizes the image to at most maxWidth pixels wide, keeping the
// aspect ratio. Images already narrow enough are returned unchanged.
// ErrUnsupportedMIMEType is returned for formats other than JPEG and PNG.
func Downscale(data []byte, ctype string, maxWidth int) ([]byte, error) {
	dec, enc, err := codecs(ctype)
	if err != nil {
		return nil, err
	}

	original, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := original.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return data, nil
	}

	ratio := float64(maxWidth) / float64(b.Dx())
	height := max(int(float64(b.Dy())*ratio), 1)

	bitmap := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(bitmap, bitmap.Bounds(), original, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := enc(&buf, bitmap); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
