package commands

import (
	"fmt"
	"image"
	"math"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// EqualizeCommand performs global histogram equalization on the grayscale image
type EqualizeCommand struct {
	name string
}

// NewEqualizeCommand creates a new equalize command; it takes no parameters
func NewEqualizeCommand(params map[string]any) (commandstructure.Command, error) {
	return &EqualizeCommand{name: EqualizeCommandName}, nil
}

// Name returns the command name
func (c *EqualizeCommand) Name() string {
	return c.name
}

// Execute spreads the gray levels of the image over the full 0..255 range
func (c *EqualizeCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	lut := equalizationLUT(histogram(gray), gray.Rect.Dx()*gray.Rect.Dy())
	return mapGray(gray, &lut), nil
}

func equalizationLUT(hist [256]int, total int) [256]uint8 {
	var lut [256]uint8

	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}
	// a single gray level maps onto itself
	if total == 0 || hist[first] == total {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	scale := 255 / float64(total-hist[first])
	sum := 0
	for i := first + 1; i < 256; i++ {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(EqualizeCommandName, NewEqualizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", EqualizeCommandName, err))
	}
}
