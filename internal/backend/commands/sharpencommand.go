package commands

import (
	"fmt"
	"image"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// sharpenKernel boosts the centre pixel against its eight neighbours; it sums to one.
var sharpenKernel = [3][3]float64{
	{-1, -1, -1},
	{-1, 9, -1},
	{-1, -1, -1},
}

// SharpenCommand convolves the grayscale image with a fixed 3×3 sharpening kernel
type SharpenCommand struct {
	name string
}

// NewSharpenCommand creates a new sharpen command; it takes no parameters
func NewSharpenCommand(params map[string]any) (commandstructure.Command, error) {
	return &SharpenCommand{name: SharpenCommandName}, nil
}

// Name returns the command name
func (c *SharpenCommand) Name() string {
	return c.name
}

// Execute sharpens the image, saturating results to 0..255
func (c *SharpenCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			sum := 0.0
			for ky := -1; ky <= 1; ky++ {
				row := clampInt(y+ky, 0, h-1) * gray.Stride
				for kx := -1; kx <= 1; kx++ {
					sum += sharpenKernel[ky+1][kx+1] * float64(gray.Pix[row+clampInt(x+kx, 0, w-1)])
				}
			}
			drow[x] = saturate(sum)
		}
	})
	return dst, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(SharpenCommandName, NewSharpenCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", SharpenCommandName, err))
	}
}
