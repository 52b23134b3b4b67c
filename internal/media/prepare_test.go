package media

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

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepare_ScalesAndReencodes(t *testing.T) {
	src := pngImage(t, 1600, 400)

	got, err := Prepare(src, TypePNG, Options{Quality: 0.7, Format: TypeJPEG})
	require.NoError(t, err)

	assert.True(t, got.Changed)
	assert.Equal(t, TypeJPEG, got.ContentType)
	assert.Equal(t, 800, got.Width)
	assert.Equal(t, 200, got.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestPrepare_UnsupportedFormatKeepsSourceFormat(t *testing.T) {
	src := pngImage(t, 1000, 500)

	got, err := Prepare(src, TypePNG, Options{Quality: 0.9, Format: "image/webp"})
	require.NoError(t, err)

	assert.True(t, got.Changed)
	assert.Equal(t, TypePNG, got.ContentType)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestPrepare_SmallImageSameFormatUntouched(t *testing.T) {
	src := pngImage(t, 64, 32)

	got, err := Prepare(src, TypePNG, Options{Format: TypePNG})
	require.NoError(t, err)

	assert.False(t, got.Changed)
	assert.Equal(t, src, got.Data)
	assert.Equal(t, 64, got.Width)
}

func TestPrepare_SmallImageConverted(t *testing.T) {
	src := pngImage(t, 64, 32)

	got, err := Prepare(src, TypePNG, Options{Format: "image/jpg", Quality: 0.5})
	require.NoError(t, err)

	assert.True(t, got.Changed)
	assert.Equal(t, TypeJPEG, got.ContentType)
	_, err = jpeg.Decode(bytes.NewReader(got.Data))
	require.NoError(t, err)
}

func TestPrepare_UndecodableReturnedAsIs(t *testing.T) {
	data := []byte("\x89PNG\r\n\x1a\ntruncated")

	got, err := Prepare(data, TypePNG, Options{Format: TypeJPEG})
	require.NoError(t, err)

	assert.False(t, got.Changed)
	assert.Equal(t, data, got.Data)
	assert.Equal(t, TypePNG, got.ContentType)
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, jpeg.DefaultQuality, jpegQuality(0))
	assert.Equal(t, 90, jpegQuality(0.9))
	assert.Equal(t, 100, jpegQuality(1.5))
	assert.Equal(t, 1, jpegQuality(0.001))
}

func TestRename(t *testing.T) {
	tests := []struct {
		name, contentType, want string
	}{
		{"cover.png", TypeJPEG, "cover.jpg"},
		{"cover.jpeg", TypeJPEG, "cover.jpeg"},
		{"cover.JPG", TypeJPEG, "cover.JPG"},
		{"cover.webp", TypePNG, "cover.png"},
		{"cover", TypePNG, "cover.png"},
		{"cover.gif", "image/gif", "cover.gif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rename(tt.name, tt.contentType), tt.name)
	}
}
