package commands

import "github.com/jo-hoe/qrsheet/internal/backend/commandstructure"

// Registered command names
const (
	IdentityCommandName          = "IdentityCommand"
	GrayscaleCommandName         = "GrayscaleCommand"
	ScaleCommandName             = "ScaleCommand"
	RotateCommandName            = "RotateCommand"
	ClaheCommandName             = "ClaheCommand"
	EqualizeCommandName          = "EqualizeCommand"
	AdaptiveThresholdCommandName = "AdaptiveThresholdCommand"
	OtsuThresholdCommandName     = "OtsuThresholdCommand"
	MorphologyCommandName        = "MorphologyCommand"
	BilateralCommandName         = "BilateralCommand"
	SharpenCommandName           = "SharpenCommand"
	GammaCommandName             = "GammaCommand"
	CropCommandName              = "CropCommand"
)

// DefaultBattery returns the ordered list of transforms tried on every image.
// Each entry is decoded independently of the others; results are unioned.
func DefaultBattery() []commandstructure.CommandConfig {
	var battery []commandstructure.CommandConfig
	add := func(name string, params map[string]any) {
		battery = append(battery, commandstructure.CommandConfig{Name: name, Params: params})
	}

	add(IdentityCommandName, nil)
	add(GrayscaleCommandName, nil)
	for _, factor := range []float64{0.5, 0.75, 1.5, 2.0, 2.5} {
		add(ScaleCommandName, map[string]any{"factor": factor})
	}
	for angle := 15; angle < 360; angle += 15 {
		add(RotateCommandName, map[string]any{"angle": float64(angle)})
	}
	for _, clip := range []float64{2.0, 3.0} {
		add(ClaheCommandName, map[string]any{"clipLimit": clip, "tilesX": 8, "tilesY": 8})
	}
	add(EqualizeCommandName, nil)
	for _, blockSize := range []int{11, 21, 31, 41} {
		for _, c := range []float64{2, 5, 10} {
			for _, inverted := range []bool{false, true} {
				add(AdaptiveThresholdCommandName, map[string]any{"blockSize": blockSize, "c": c, "inverted": inverted})
			}
		}
	}
	for _, inverted := range []bool{false, true} {
		add(OtsuThresholdCommandName, map[string]any{"inverted": inverted})
	}
	for _, operation := range []string{MorphologyOpen, MorphologyClose} {
		for _, k := range []int{3, 5, 7} {
			add(MorphologyCommandName, map[string]any{"operation": operation, "kernelSize": k})
		}
	}
	add(BilateralCommandName, map[string]any{"diameter": 9, "sigmaColor": 75.0, "sigmaSpace": 75.0})
	add(SharpenCommandName, nil)
	for _, gamma := range []float64{0.5, 1.5, 2.0} {
		add(GammaCommandName, map[string]any{"gamma": gamma})
	}
	for _, region := range []string{CropTop, CropBottom, CropLeft, CropRight} {
		add(CropCommandName, map[string]any{"region": region})
	}

	return battery
}
