package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// GrayscaleCommand converts the image to 8-bit luminance
type GrayscaleCommand struct {
	name string
}

// NewGrayscaleCommand creates a new grayscale command; it takes no parameters
func NewGrayscaleCommand(params map[string]any) (commandstructure.Command, error) {
	return &GrayscaleCommand{name: GrayscaleCommandName}, nil
}

// Name returns the command name
func (c *GrayscaleCommand) Name() string {
	return c.name
}

// Execute converts the image to grayscale
func (c *GrayscaleCommand) Execute(img image.Image) (image.Image, error) {
	slog.Debug("GrayscaleCommand: converting image",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return toGray(img), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(GrayscaleCommandName, NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", GrayscaleCommandName, err))
	}
}
