package commands

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RotateParams represents typed parameters for rotate command
type RotateParams struct {
	// Angle in degrees, counter-clockwise.
	Angle float64
}

// NewRotateParamsFromMap creates RotateParams from a generic map
func NewRotateParamsFromMap(params map[string]any) (*RotateParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"angle"}); err != nil {
		return nil, err
	}

	angle := commandstructure.GetFloatParam(params, "angle", 0)
	if angle <= -360 || angle >= 360 {
		return nil, fmt.Errorf("angle must be within (-360, 360), got %v", angle)
	}

	return &RotateParams{Angle: angle}, nil
}

// RotateCommand rotates the image about its centre, keeping the canvas size
type RotateCommand struct {
	name   string
	params *RotateParams
}

// NewRotateCommand creates a new rotate command from configuration parameters
func NewRotateCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewRotateParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &RotateCommand{
		name:   RotateCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *RotateCommand) Name() string {
	return c.name
}

// Execute rotates the image by the configured angle. Corners uncovered by the
// rotation are filled white so that the quiet zone around a symbol stays light.
func (c *RotateCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	slog.Debug("RotateCommand: rotating image",
		"angle", c.params.Angle,
		"width", width,
		"height", height)

	dst := createTargetCanvas(width, height, color.RGBA{255, 255, 255, 255})
	if c.params.Angle == 0 {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		return dst, nil
	}

	draw.BiLinear.Transform(dst, rotationAbout(c.params.Angle, bounds), img, bounds, draw.Over, nil)
	return dst, nil
}

// GetParams returns the typed parameters
func (c *RotateCommand) GetParams() *RotateParams {
	return c.params
}

// rotationAbout builds the source to destination transform rotating by angle degrees
// (counter-clockwise on screen) about the centre of bounds, with the result placed at the origin.
func rotationAbout(angle float64, bounds image.Rectangle) f64.Aff3 {
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	// source centre, in source coordinates
	scx := float64(bounds.Min.X) + float64(bounds.Dx())/2
	scy := float64(bounds.Min.Y) + float64(bounds.Dy())/2
	// destination centre
	dcx := float64(bounds.Dx()) / 2
	dcy := float64(bounds.Dy()) / 2

	// y grows downwards, so a counter-clockwise turn on screen uses +sin for x and -sin for y.
	return f64.Aff3{
		cos, sin, dcx - cos*scx - sin*scy,
		-sin, cos, dcy + sin*scx - cos*scy,
	}
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(RotateCommandName, NewRotateCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", RotateCommandName, err))
	}
}
