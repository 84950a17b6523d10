package commands

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// toGray converts any image into an origin based *image.Gray using the BT.601 luma weights.
// The input is never modified; a Gray input is copied.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	if g, ok := img.(*image.Gray); ok {
		parallelFor(h, func(y int) {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		})
		return dst
	}

	parallelFor(h, func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			row[x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	})
	return dst
}

// toRGBA copies an image into an origin based *image.RGBA.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func createTargetCanvas(w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// histogram counts the gray levels of an image.
func histogram(g *image.Gray) [256]int {
	var hist [256]int
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[v]++
		}
	}
	return hist
}

// gaussianKernel returns a normalized 1D Gaussian kernel of the given odd size.
// A non-positive sigma is derived from the size the way OpenCV does it.
func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	k := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// separableBlur convolves a grayscale image with the same 1D kernel horizontally and vertically,
// replicating border pixels. The result is kept in float precision.
func separableBlur(g *image.Gray, kernel []float64) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	half := len(kernel) / 2
	tmp := make([]float64, w*h)
	out := make([]float64, w*h)

	parallelFor(h, func(y int) {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := 0; x < w; x++ {
			sum := 0.0
			for i, kv := range kernel {
				sum += kv * float64(row[clampInt(x+i-half, 0, w-1)])
			}
			tmp[y*w+x] = sum
		}
	})
	parallelFor(h, func(y int) {
		for x := 0; x < w; x++ {
			sum := 0.0
			for i, kv := range kernel {
				sum += kv * tmp[clampInt(y+i-half, 0, h-1)*w+x]
			}
			out[y*w+x] = sum
		}
	})
	return out
}
