package commands

import (
	"fmt"
	"image"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// IdentityCommand passes the image through unchanged
type IdentityCommand struct {
	name string
}

// NewIdentityCommand creates a new identity command; it takes no parameters
func NewIdentityCommand(params map[string]any) (commandstructure.Command, error) {
	return &IdentityCommand{name: IdentityCommandName}, nil
}

// Name returns the command name
func (c *IdentityCommand) Name() string {
	return c.name
}

// Execute returns the input image
func (c *IdentityCommand) Execute(img image.Image) (image.Image, error) {
	return img, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(IdentityCommandName, NewIdentityCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", IdentityCommandName, err))
	}
}
