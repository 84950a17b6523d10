package commands

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// BilateralParams represents typed parameters for bilateral filter command
type BilateralParams struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

// NewBilateralParamsFromMap creates BilateralParams from a generic map
func NewBilateralParamsFromMap(params map[string]any) (*BilateralParams, error) {
	diameter := commandstructure.GetIntParam(params, "diameter", 9)
	sigmaColor := commandstructure.GetFloatParam(params, "sigmaColor", 75)
	sigmaSpace := commandstructure.GetFloatParam(params, "sigmaSpace", 75)

	if diameter <= 0 {
		return nil, fmt.Errorf("diameter must be positive, got %d", diameter)
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, fmt.Errorf("sigmas must be positive, got color=%v space=%v", sigmaColor, sigmaSpace)
	}

	return &BilateralParams{
		Diameter:   diameter,
		SigmaColor: sigmaColor,
		SigmaSpace: sigmaSpace,
	}, nil
}

// BilateralCommand smooths noise while keeping edges, weighting neighbours by distance and intensity difference
type BilateralCommand struct {
	name   string
	params *BilateralParams
}

// NewBilateralCommand creates a new bilateral command from configuration parameters
func NewBilateralCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewBilateralParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &BilateralCommand{
		name:   BilateralCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *BilateralCommand) Name() string {
	return c.name
}

type bilateralTap struct {
	dx, dy int
	weight float64
}

// Execute filters the grayscale image
func (c *BilateralCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	radius := c.params.Diameter / 2

	slog.Debug("BilateralCommand: filtering",
		"diameter", c.params.Diameter,
		"sigma_color", c.params.SigmaColor,
		"sigma_space", c.params.SigmaSpace)

	// circular spatial support
	var taps []bilateralTap
	spaceCoeff := -0.5 / (c.params.SigmaSpace * c.params.SigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := dx*dx + dy*dy
			if r2 > radius*radius {
				continue
			}
			taps = append(taps, bilateralTap{dx, dy, math.Exp(float64(r2) * spaceCoeff)})
		}
	}

	var colorWeight [256]float64
	colorCoeff := -0.5 / (c.params.SigmaColor * c.params.SigmaColor)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			center := int(gray.Pix[y*gray.Stride+x])
			sum, norm := 0.0, 0.0
			for _, tap := range taps {
				nx := clampInt(x+tap.dx, 0, w-1)
				ny := clampInt(y+tap.dy, 0, h-1)
				v := int(gray.Pix[ny*gray.Stride+nx])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				weight := tap.weight * colorWeight[diff]
				sum += weight * float64(v)
				norm += weight
			}
			drow[x] = saturate(sum / norm)
		}
	})
	return dst, nil
}

// GetParams returns the typed parameters
func (c *BilateralCommand) GetParams() *BilateralParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(BilateralCommandName, NewBilateralCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", BilateralCommandName, err))
	}
}
