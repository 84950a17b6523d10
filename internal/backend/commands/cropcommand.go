package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// Crop regions; each keeps one half of the image
const (
	CropTop    = "top"
	CropBottom = "bottom"
	CropLeft   = "left"
	CropRight  = "right"
)

// CropParams represents typed parameters for crop command
type CropParams struct {
	Region string
}

// NewCropParamsFromMap creates CropParams from a generic map
func NewCropParamsFromMap(params map[string]any) (*CropParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"region"}); err != nil {
		return nil, err
	}

	region, err := commandstructure.GetEnumParam(params, "region", CropTop, CropBottom, CropLeft, CropRight)
	if err != nil {
		return nil, err
	}

	return &CropParams{Region: region}, nil
}

// CropCommand keeps one half of the image so that codes in different regions can be read in isolation
type CropCommand struct {
	name   string
	params *CropParams
}

// NewCropCommand creates a new crop command from configuration parameters
func NewCropCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewCropParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &CropCommand{
		name:   CropCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *CropCommand) Name() string {
	return c.name
}

// Execute copies the configured half of the image into a new image
func (c *CropCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	region := cropRegion(bounds, c.params.Region)
	if region.Empty() {
		slog.Debug("CropCommand: image too small to split", "region", c.params.Region)
		return nil, commandstructure.ErrNotApplicable
	}

	slog.Debug("CropCommand: cropping",
		"region", c.params.Region,
		"crop_width", region.Dx(),
		"crop_height", region.Dy())

	cropped := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, region.Min, draw.Src)
	return cropped, nil
}

// GetParams returns the typed parameters
func (c *CropCommand) GetParams() *CropParams {
	return c.params
}

func cropRegion(b image.Rectangle, region string) image.Rectangle {
	midX := b.Min.X + b.Dx()/2
	midY := b.Min.Y + b.Dy()/2
	switch region {
	case CropTop:
		return image.Rect(b.Min.X, b.Min.Y, b.Max.X, midY)
	case CropBottom:
		return image.Rect(b.Min.X, midY, b.Max.X, b.Max.Y)
	case CropLeft:
		return image.Rect(b.Min.X, b.Min.Y, midX, b.Max.Y)
	case CropRight:
		return image.Rect(midX, b.Min.Y, b.Max.X, b.Max.Y)
	}
	return image.Rectangle{}
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(CropCommandName, NewCropCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", CropCommandName, err))
	}
}
