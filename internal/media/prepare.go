// Package media prepares uploaded product images before they are stored:
// wide images are scaled down and re-encoded in the storefront's preferred
// format and quality.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"path"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxWidth is the widest image kept as uploaded.
const MaxWidth = 800

// Content types Prepare can encode.
const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"
)

// Options controls Prepare. Quality is in [0, 1]; 0 selects the encoder
// default. Format is the preferred content type.
type Options struct {
	MaxWidth int
	Quality  float64
	Format   string
}

// Image is a prepared upload.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Changed     bool
}

// Prepare decodes data, scales it to at most opts.MaxWidth pixels wide and
// re-encodes it. The output format is opts.Format when it can be encoded,
// otherwise the source format. Images that cannot be decoded, or whose
// source format cannot be encoded either, come back untouched with
// Changed=false. Images that need neither scaling nor a format change are
// also returned as uploaded.
func Prepare(data []byte, contentType string, opts Options) (Image, error) {
	original := Image{Data: data, ContentType: contentType}

	cfg, srcFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return original, nil
	}
	original.Width, original.Height = cfg.Width, cfg.Height

	target := encodable(opts.Format)
	if target == "" {
		target = encodable("image/" + srcFormat)
	}
	if target == "" {
		return original, nil
	}

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = MaxWidth
	}
	resize := cfg.Width > maxWidth
	if !resize && target == "image/"+srcFormat {
		return original, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return original, nil
	}
	out := src
	if resize {
		out = scale(src, maxWidth, target == TypeJPEG)
	} else if target == TypeJPEG {
		out = flatten(src)
	}

	var buf bytes.Buffer
	switch target {
	case TypeJPEG:
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality(opts.Quality)})
	case TypePNG:
		err = (&png.Encoder{CompressionLevel: png.BestCompression}).Encode(&buf, out)
	}
	if err != nil {
		return original, fmt.Errorf("encode %s: %w", target, err)
	}

	b := out.Bounds()
	return Image{
		Data:        buf.Bytes(),
		ContentType: target,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Changed:     true,
	}, nil
}

// Rename swaps the extension of filename to match contentType. Unknown
// content types leave the name alone.
func Rename(filename, contentType string) string {
	var ext string
	switch contentType {
	case TypeJPEG:
		ext = ".jpg"
	case TypePNG:
		ext = ".png"
	default:
		return filename
	}
	cur := strings.ToLower(path.Ext(filename))
	if cur == ext || (ext == ".jpg" && cur == ".jpeg") {
		return filename
	}
	return strings.TrimSuffix(filename, path.Ext(filename)) + ext
}

func encodable(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case TypeJPEG, "image/jpg":
		return TypeJPEG
	case TypePNG:
		return TypePNG
	}
	return ""
}

// jpegQuality maps [0, 1] onto the encoder's 1-100 scale.
func jpegQuality(q float64) int {
	if q <= 0 {
		return jpeg.DefaultQuality
	}
	v := int(math.Round(q * 100))
	return max(1, min(100, v))
}

// scale resamples src to width w keeping the aspect ratio. JPEG output has
// no alpha, so transparent pixels are composited over white.
func scale(src image.Image, w int, opaque bool) image.Image {
	sb := src.Bounds()
	h := max(1, int(math.Round(float64(sb.Dy())*float64(w)/float64(sb.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if opaque {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
