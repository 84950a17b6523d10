package commands

import (
	"fmt"
	"image"
	"math"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// GammaParams represents typed parameters for gamma command
type GammaParams struct {
	Gamma float64
}

// NewGammaParamsFromMap creates GammaParams from a generic map
func NewGammaParamsFromMap(params map[string]any) (*GammaParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"gamma"}); err != nil {
		return nil, err
	}

	gamma := commandstructure.GetFloatParam(params, "gamma", 0)
	if gamma <= 0 {
		return nil, fmt.Errorf("gamma must be positive, got %v", gamma)
	}

	return &GammaParams{Gamma: gamma}, nil
}

// GammaCommand applies a gamma curve through a lookup table
type GammaCommand struct {
	name   string
	params *GammaParams
	lut    [256]uint8
}

// NewGammaCommand creates a new gamma command from configuration parameters
func NewGammaCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewGammaParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &GammaCommand{
		name:   GammaCommandName,
		params: typedParams,
		lut:    gammaLUT(typedParams.Gamma),
	}, nil
}

// Name returns the command name
func (c *GammaCommand) Name() string {
	return c.name
}

// Execute maps every gray level v to 255*(v/255)^(1/gamma)
func (c *GammaCommand) Execute(img image.Image) (image.Image, error) {
	return mapGray(toGray(img), &c.lut), nil
}

// GetParams returns the typed parameters
func (c *GammaCommand) GetParams() *GammaParams {
	return c.params
}

func gammaLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	inv := 1 / gamma
	for i := range lut {
		lut[i] = uint8(math.Pow(float64(i)/255, inv) * 255)
	}
	return lut
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(GammaCommandName, NewGammaCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", GammaCommandName, err))
	}
}
