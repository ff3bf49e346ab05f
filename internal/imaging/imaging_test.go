package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, c)
		}
	}
	return img
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255})))
	return buf.Bytes()
}

func TestNormalize_JPEG(t *testing.T) {
	p, err := Normalize(bytes.NewReader(testJPEG(t, 100, 100)), DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, p.MIME)
	assert.NotEmpty(t, p.Data)
	assert.Equal(t, 100, p.Width)
}

func TestNormalize_PNGBecomesJPEG(t *testing.T) {
	p, err := Normalize(bytes.NewReader(testPNG(t, 64, 32)), DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, p.MIME)

	_, format, err := image.Decode(bytes.NewReader(p.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestNormalize_Downscales(t *testing.T) {
	p, err := Normalize(bytes.NewReader(testJPEG(t, 1600, 400)), Options{MaxDimension: 400})
	require.NoError(t, err)
	assert.Equal(t, 400, p.Width)
	assert.Equal(t, 100, p.Height)

	img, _, err := image.Decode(bytes.NewReader(p.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestNormalize_SmallImageNotUpscaled(t *testing.T) {
	p, err := Normalize(bytes.NewReader(testJPEG(t, 50, 50)), DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Width)
	assert.Equal(t, 50, p.Height)
}

func TestNormalize_Rejects(t *testing.T) {
	_, err := Normalize(bytes.NewReader([]byte("not an image")), DefaultOptions)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Normalize(bytes.NewReader([]byte("GIF89a...")), DefaultOptions)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Normalize(bytes.NewReader(testJPEG(t, 200, 200)), Options{MaxBytes: 64})
	assert.ErrorIs(t, err, ErrTooLarge)
}
