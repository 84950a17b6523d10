package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

const (
	defaultMinScaledSize = 50
	defaultMaxScaledSize = 5000
)

// ScaleParams represents typed parameters for scale command
type ScaleParams struct {
	Factor  float64
	MinSize int
	MaxSize int
}

// NewScaleParamsFromMap creates ScaleParams from a generic map
func NewScaleParamsFromMap(params map[string]any) (*ScaleParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"factor"}); err != nil {
		return nil, err
	}

	factor := commandstructure.GetFloatParam(params, "factor", 0)
	minSize := commandstructure.GetIntParam(params, "minSize", defaultMinScaledSize)
	maxSize := commandstructure.GetIntParam(params, "maxSize", defaultMaxScaledSize)

	if factor <= 0 {
		return nil, fmt.Errorf("factor must be positive, got %v", factor)
	}
	if minSize <= 0 || maxSize <= minSize {
		return nil, fmt.Errorf("invalid size range %d..%d", minSize, maxSize)
	}

	return &ScaleParams{
		Factor:  factor,
		MinSize: minSize,
		MaxSize: maxSize,
	}, nil
}

// ScaleCommand rescales the image by a fixed factor
type ScaleCommand struct {
	name   string
	params *ScaleParams
}

// NewScaleCommand creates a new scale command from configuration parameters
func NewScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ScaleCommand{
		name:   ScaleCommandName,
		params: typedParams,
	}, nil
}

// NewScaleCommandWithParams creates a new scale command from concrete typed parameters
func NewScaleCommandWithParams(factor float64) (*ScaleCommand, error) {
	typedParams, err := NewScaleParamsFromMap(map[string]any{"factor": factor})
	if err != nil {
		return nil, err
	}
	return &ScaleCommand{
		name:   ScaleCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ScaleCommand) Name() string {
	return c.name
}

// Execute rescales the image with Catmull-Rom interpolation.
// Results whose width or height fall outside the configured range are not produced.
func (c *ScaleCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	scaledWidth := int(float64(bounds.Dx()) * c.params.Factor)
	scaledHeight := int(float64(bounds.Dy()) * c.params.Factor)

	if !c.inRange(scaledWidth) || !c.inRange(scaledHeight) {
		slog.Debug("ScaleCommand: scaled size out of range; skipping",
			"factor", c.params.Factor,
			"scaled_width", scaledWidth,
			"scaled_height", scaledHeight)
		return nil, commandstructure.ErrNotApplicable
	}

	slog.Debug("ScaleCommand: scaling image",
		"factor", c.params.Factor,
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	dst := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}

func (c *ScaleCommand) inRange(v int) bool {
	return v > c.params.MinSize && v < c.params.MaxSize
}

// GetFactor returns the configured scale factor
func (c *ScaleCommand) GetFactor() float64 {
	return c.params.Factor
}

// GetParams returns the typed parameters
func (c *ScaleCommand) GetParams() *ScaleParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ScaleCommandName, NewScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ScaleCommandName, err))
	}
}
