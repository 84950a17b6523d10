package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

// OtsuThresholdCommand binarizes with the global threshold that maximizes between-class variance
type OtsuThresholdCommand struct {
	name     string
	inverted bool
}

// NewOtsuThresholdCommand creates a new Otsu threshold command from configuration parameters
func NewOtsuThresholdCommand(params map[string]any) (commandstructure.Command, error) {
	return &OtsuThresholdCommand{
		name:     OtsuThresholdCommandName,
		inverted: commandstructure.GetBoolParam(params, "inverted", false),
	}, nil
}

// Name returns the command name
func (c *OtsuThresholdCommand) Name() string {
	return c.name
}

// Execute binarizes the grayscale image; pixels above the threshold become white
// (black when inverted)
func (c *OtsuThresholdCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	threshold := otsuThreshold(histogram(gray), gray.Rect.Dx()*gray.Rect.Dy())

	slog.Debug("OtsuThresholdCommand: computed threshold",
		"threshold", threshold,
		"inverted", c.inverted)

	var lut [256]uint8
	for i := range lut {
		if (i > threshold) != c.inverted {
			lut[i] = 255
		}
	}
	return mapGray(gray, &lut), nil
}

// IsInverted reports whether the output polarity is inverted
func (c *OtsuThresholdCommand) IsInverted() bool {
	return c.inverted
}

// otsuThreshold returns the gray level t such that splitting into [0..t] and (t..255]
// maximizes the between-class variance.
func otsuThreshold(hist [256]int, total int) int {
	if total == 0 {
		return 0
	}

	sumAll := 0.0
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	best, bestVar := 0, -1.0
	weightBg, sumBg := 0, 0.0
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t * hist[t])
		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return best
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(OtsuThresholdCommandName, NewOtsuThresholdCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", OtsuThresholdCommandName, err))
	}
}
