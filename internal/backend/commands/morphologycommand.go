package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// Morphology operations
const (
	MorphologyOpen  = "open"
	MorphologyClose = "close"
)

// MorphologyParams represents typed parameters for morphology command
type MorphologyParams struct {
	Operation  string
	KernelSize int
}

// NewMorphologyParamsFromMap creates MorphologyParams from a generic map
func NewMorphologyParamsFromMap(params map[string]any) (*MorphologyParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"operation", "kernelSize"}); err != nil {
		return nil, err
	}

	operation, err := commandstructure.GetEnumParam(params, "operation", MorphologyOpen, MorphologyClose)
	if err != nil {
		return nil, err
	}
	kernelSize := commandstructure.GetIntParam(params, "kernelSize", 0)
	if kernelSize <= 0 {
		return nil, fmt.Errorf("kernelSize must be positive, got %d", kernelSize)
	}

	return &MorphologyParams{
		Operation:  operation,
		KernelSize: kernelSize,
	}, nil
}

// MorphologyCommand applies a morphological opening or closing with a square kernel
type MorphologyCommand struct {
	name   string
	params *MorphologyParams
}

// NewMorphologyCommand creates a new morphology command from configuration parameters
func NewMorphologyCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewMorphologyParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &MorphologyCommand{
		name:   MorphologyCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *MorphologyCommand) Name() string {
	return c.name
}

// Execute runs the configured operation on the grayscale image.
// Opening (erode, dilate) removes small bright specks; closing (dilate, erode) fills small dark holes.
func (c *MorphologyCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	k := c.params.KernelSize

	slog.Debug("MorphologyCommand: applying",
		"operation", c.params.Operation,
		"kernel_size", k)

	if c.params.Operation == MorphologyOpen {
		return rankFilter(rankFilter(gray, k, minUint8), k, maxUint8), nil
	}
	return rankFilter(rankFilter(gray, k, maxUint8), k, minUint8), nil
}

// GetParams returns the typed parameters
func (c *MorphologyCommand) GetParams() *MorphologyParams {
	return c.params
}

func minUint8(a, b uint8) uint8 { return min(a, b) }
func maxUint8(a, b uint8) uint8 { return max(a, b) }

// rankFilter applies a k×k square min or max filter as two separable passes.
// The kernel anchor is its centre; border pixels are replicated.
func rankFilter(src *image.Gray, k int, pick func(a, b uint8) uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	lo := -(k / 2)
	hi := lo + k - 1

	tmp := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		srow := src.Pix[y*src.Stride : y*src.Stride+w]
		trow := tmp.Pix[y*tmp.Stride : y*tmp.Stride+w]
		for x := 0; x < w; x++ {
			v := srow[clampInt(x+lo, 0, w-1)]
			for d := lo + 1; d <= hi; d++ {
				v = pick(v, srow[clampInt(x+d, 0, w-1)])
			}
			trow[x] = v
		}
	})

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			v := tmp.Pix[clampInt(y+lo, 0, h-1)*tmp.Stride+x]
			for d := lo + 1; d <= hi; d++ {
				v = pick(v, tmp.Pix[clampInt(y+d, 0, h-1)*tmp.Stride+x])
			}
			drow[x] = v
		}
	})
	return dst
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(MorphologyCommandName, NewMorphologyCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", MorphologyCommandName, err))
	}
}
