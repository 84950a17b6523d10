package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// AdaptiveThresholdParams represents typed parameters for adaptive threshold command
type AdaptiveThresholdParams struct {
	BlockSize int
	C         float64
	Inverted  bool
}

// NewAdaptiveThresholdParamsFromMap creates AdaptiveThresholdParams from a generic map
func NewAdaptiveThresholdParamsFromMap(params map[string]any) (*AdaptiveThresholdParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"blockSize", "c"}); err != nil {
		return nil, err
	}

	blockSize := commandstructure.GetIntParam(params, "blockSize", 0)
	c := commandstructure.GetFloatParam(params, "c", 0)
	inverted := commandstructure.GetBoolParam(params, "inverted", false)

	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("blockSize must be an odd number >= 3, got %d", blockSize)
	}

	return &AdaptiveThresholdParams{
		BlockSize: blockSize,
		C:         c,
		Inverted:  inverted,
	}, nil
}

// AdaptiveThresholdCommand binarizes against a Gaussian weighted local mean
type AdaptiveThresholdCommand struct {
	name   string
	params *AdaptiveThresholdParams
	kernel []float64
}

// NewAdaptiveThresholdCommand creates a new adaptive threshold command from configuration parameters
func NewAdaptiveThresholdCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewAdaptiveThresholdParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &AdaptiveThresholdCommand{
		name:   AdaptiveThresholdCommandName,
		params: typedParams,
		kernel: gaussianKernel(typedParams.BlockSize, 0),
	}, nil
}

// Name returns the command name
func (c *AdaptiveThresholdCommand) Name() string {
	return c.name
}

// Execute sets a pixel to white when it is brighter than its local mean minus C.
// The inverted variant swaps black and white.
func (c *AdaptiveThresholdCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	slog.Debug("AdaptiveThresholdCommand: thresholding",
		"block_size", c.params.BlockSize,
		"c", c.params.C,
		"inverted", c.params.Inverted)

	mean := separableBlur(gray, c.kernel)
	above, below := uint8(255), uint8(0)
	if c.params.Inverted {
		above, below = below, above
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		srow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range srow {
			if float64(v) > mean[y*w+x]-c.params.C {
				drow[x] = above
			} else {
				drow[x] = below
			}
		}
	})
	return dst, nil
}

// GetParams returns the typed parameters
func (c *AdaptiveThresholdCommand) GetParams() *AdaptiveThresholdParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(AdaptiveThresholdCommandName, NewAdaptiveThresholdCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", AdaptiveThresholdCommandName, err))
	}
}
