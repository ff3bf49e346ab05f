// Package imaging normalizes uploaded item photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MIMEJPEG is the MIME type of every normalized photo.
const MIMEJPEG = "image/jpeg"

// ErrUnsupported is returned for uploads that are not JPEG or PNG.
var ErrUnsupported = errors.New("unsupported image format")

// ErrTooLarge is returned when an upload exceeds Options.MaxBytes.
var ErrTooLarge = errors.New("image too large")

// Options controls photo normalization.
type Options struct {
	MaxDimension int   // longest side after scaling
	Quality      int   // JPEG quality, 1-100
	MaxBytes     int64 // upload size cap
}

// DefaultOptions suit item thumbnails shown in listings.
var DefaultOptions = Options{
	MaxDimension: 800,
	Quality:      80,
	MaxBytes:     10 << 20,
}

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a normalized image ready for storage.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Normalize reads an uploaded photo, checks its format from the bytes
// themselves, shrinks it to fit opts.MaxDimension and re-encodes it as JPEG.
func Normalize(r io.Reader, opts Options) (*Photo, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultOptions.MaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultOptions.Quality
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultOptions.MaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, opts.MaxBytes)
	}

	if mime := http.DetectContentType(data); !accepted[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	img := fit(src, opts.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: MIMEJPEG, Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so its longest side is at most limit, keeping the
// aspect ratio. Smaller images are returned as they are.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	scale := float64(limit) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
