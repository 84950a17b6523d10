package commands

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultSVGSize is the render size used for SVG input without explicit width and height.
	DefaultSVGSize = 1024
	// MaxSVGPixels bounds the canvas an SVG is rendered onto; larger declared sizes are scaled down.
	MaxSVGPixels = 4096 * 4096
	// MaxImagePixels is the largest raster image that is decoded.
	MaxImagePixels = 40_000_000
)

var (
	// ErrEmptyImage is returned for zero length input.
	ErrEmptyImage = errors.New("image data is empty")
	// ErrImageTooLarge is returned for raster input above MaxImagePixels.
	ErrImageTooLarge = errors.New("image dimensions exceed the pixel limit")
)

// DecodeImage decodes raster input (PNG, JPEG, GIF, BMP, TIFF, WEBP) or renders SVG input.
// It returns the image and the detected format name.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	if isSVGData(data) {
		w, h, ok := parseSvgExplicitSize(data)
		if !ok {
			w, h = DefaultSVGSize, DefaultSVGSize
		}
		w, h = fitPixelBudget(w, h, MaxSVGPixels)
		slog.Debug("DecodeImage: rendering SVG input", "width", w, "height", h)
		img, err := renderSVG(data, w, h)
		if err != nil {
			return nil, "", err
		}
		return img, "svg", nil
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(config.Width)*int64(config.Height) > MaxImagePixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	slog.Debug("DecodeImage: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, format, nil
}

// fitPixelBudget scales w x h down, keeping the aspect ratio, until it covers at most
// maxPixels. Each side stays at least one pixel.
func fitPixelBudget(w, h, maxPixels int) (int, int) {
	area := float64(w) * float64(h)
	if area <= float64(maxPixels) {
		return w, h
	}
	scale := math.Sqrt(float64(maxPixels) / area)
	w, h = max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)
	// a side clamped to one pixel leaves the whole budget to the other
	w = min(w, maxPixels/h)
	h = min(h, maxPixels/w)
	return w, h
}

// parseSvgExplicitSize attempts to extract width and height attributes from the SVG.
// Returns width, height, and ok=true if both are found and parseable.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := min(len(data), 8192)
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	tag := s[i:]
	if j := strings.Index(tag, ">"); j >= 0 {
		tag = tag[:j]
	}

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	// viewBox alone is not treated as a pixel size
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of a quoted attribute value (e.g., width="123px").
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := tag[pos+len(attr)+2:]
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return 0, false
	}
	quote := rest[0]
	rest = rest[1:]
	if end := strings.IndexByte(rest, quote); end >= 0 {
		rest = rest[:end]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	num, err := strconv.Atoi(rest[:digits])
	if err != nil || num <= 0 {
		return 0, false
	}
	return num, true
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
func isSVGData(data []byte) bool {
	n := min(len(data), 4096)
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// renderSVG rasterizes an SVG onto a white canvas of the given size.
func renderSVG(svgData []byte, targetW, targetH int) (image.Image, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	icon.SetTarget(0, 0, float64(targetW), float64(targetH))
	dst := createTargetCanvas(targetW, targetH, color.RGBA{255, 255, 255, 255})

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
