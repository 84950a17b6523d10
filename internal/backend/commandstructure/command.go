package commandstructure

import (
	"errors"
	"image"
)

// ErrNotApplicable is returned by a command that deliberately does not run on a given image,
// e.g. a rescale whose result would fall outside the supported size range.
var ErrNotApplicable = errors.New("command not applicable to image")

// Command defines the interface for all image transforms of the decode battery
type Command interface {
	Name() string
	Execute(img image.Image) (image.Image, error)
}

// CommandFactory is a function type that creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig represents a command configuration with name and parameters
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}
