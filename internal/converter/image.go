package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultJPEGQuality = 85
	defaultMaxPixels   = 100 * 1000 * 1000 // 100 megapixels
)

// Thumbnailer scales raster images down to a maximum width.
type Thumbnailer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// Thumbnail holds resized image data and metadata.
// Warning is set (non-empty) when the image was returned as-is because it
// could not be decoded or was too large to decode. Data is usable either way.
type Thumbnail struct {
	Data      []byte
	Width     int
	Height    int
	MediaType string
	Warning   string
}

// NewThumbnailer creates a thumbnailer for the given width. A width of zero
// or less keeps images at their original size.
func NewThumbnailer(maxWidth int) *Thumbnailer {
	return &Thumbnailer{
		MaxWidth:    maxWidth,
		JPEGQuality: defaultJPEGQuality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Resize decodes input and, when it is wider than MaxWidth, scales it down
// preserving the aspect ratio. Images that already fit, animated GIFs and
// undecodable data are passed through unchanged.
func (t *Thumbnailer) Resize(mediaType string, input []byte) (Thumbnail, error) {
	out := Thumbnail{
		Data:      input,
		MediaType: mediaType,
	}

	cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(input))
	if cfgErr == nil {
		out.Width = cfg.Width
		out.Height = cfg.Height
		pixels := uint64(cfg.Width) * uint64(cfg.Height)
		if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
			out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
			return out, nil
		}
		if t.MaxWidth <= 0 || cfg.Width <= t.MaxWidth {
			return out, nil
		}
	}
	if t.MaxWidth <= 0 {
		return out, nil
	}

	if strings.EqualFold(mediaType, "image/gif") {
		animated, err := isAnimatedGIF(input)
		if err == nil && animated {
			return out, nil
		}
	}

	src, decodedFormat, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}
	if t.MaxWidth <= 0 || src.Bounds().Dx() <= t.MaxWidth {
		return out, nil
	}

	resized := imaging.Resize(src, t.MaxWidth, 0, imaging.Lanczos)

	var data []byte
	switch chooseTargetFormat(mediaType, decodedFormat, resized) {
	case "png":
		data, err = encodePNG(resized)
		if err != nil {
			return out, fmt.Errorf("png encode failed: %w", err)
		}
		out.MediaType = "image/png"
	default:
		data, err = encodeJPEG(resized, t.JPEGQuality)
		if err != nil {
			return out, fmt.Errorf("jpeg encode failed: %w", err)
		}
		out.MediaType = "image/jpeg"
	}

	out.Data = data
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	return out, nil
}

// chooseTargetFormat determines the output format for a resized image.
// Transparent PNGs stay PNG to keep their alpha channel; everything else is
// written as JPEG.
func chooseTargetFormat(mediaType, detected string, img image.Image) string {
	switch strings.ToLower(mediaType) {
	case "image/png":
		if hasAlpha(img) {
			return "png"
		}
		return "jpeg"
	case "image/jpeg", "image/jpg", "image/gif":
		return "jpeg"
	}

	if strings.EqualFold(detected, "png") && hasAlpha(img) {
		return "png"
	}
	return "jpeg"
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}

func hasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
