package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

const defaultClaheTiles = 8

// ClaheParams represents typed parameters for the contrast limited adaptive histogram equalization
type ClaheParams struct {
	ClipLimit float64
	TilesX    int
	TilesY    int
}

// NewClaheParamsFromMap creates ClaheParams from a generic map
func NewClaheParamsFromMap(params map[string]any) (*ClaheParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"clipLimit"}); err != nil {
		return nil, err
	}

	clipLimit := commandstructure.GetFloatParam(params, "clipLimit", 0)
	tilesX := commandstructure.GetIntParam(params, "tilesX", defaultClaheTiles)
	tilesY := commandstructure.GetIntParam(params, "tilesY", defaultClaheTiles)

	if clipLimit <= 0 {
		return nil, fmt.Errorf("clipLimit must be positive, got %v", clipLimit)
	}
	if tilesX <= 0 || tilesY <= 0 {
		return nil, fmt.Errorf("tile grid must be positive, got %dx%d", tilesX, tilesY)
	}

	return &ClaheParams{
		ClipLimit: clipLimit,
		TilesX:    tilesX,
		TilesY:    tilesY,
	}, nil
}

// ClaheCommand equalizes contrast per tile with a clipped histogram and blends tiles bilinearly
type ClaheCommand struct {
	name   string
	params *ClaheParams
}

// NewClaheCommand creates a new CLAHE command from configuration parameters
func NewClaheCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewClaheParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ClaheCommand{
		name:   ClaheCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ClaheCommand) Name() string {
	return c.name
}

// Execute applies CLAHE to the grayscale version of the image
func (c *ClaheCommand) Execute(img image.Image) (image.Image, error) {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return gray, nil
	}

	tilesX := min(c.params.TilesX, w)
	tilesY := min(c.params.TilesY, h)

	slog.Debug("ClaheCommand: equalizing",
		"clip_limit", c.params.ClipLimit,
		"tiles_x", tilesX,
		"tiles_y", tilesY)

	luts := make([][256]uint8, tilesX*tilesY)
	parallelFor(tilesY, func(ty int) {
		y0, y1 := ty*h/tilesY, (ty+1)*h/tilesY
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := tx*w/tilesX, (tx+1)*w/tilesX
			luts[ty*tilesX+tx] = c.tileLUT(gray, x0, y0, x1, y1)
		}
	})

	// tile centres along each axis
	centerX := make([]float64, tilesX)
	for tx := range centerX {
		centerX[tx] = float64(tx*w/tilesX+(tx+1)*w/tilesX) / 2
	}
	centerY := make([]float64, tilesY)
	for ty := range centerY {
		centerY[ty] = float64(ty*h/tilesY+(ty+1)*h/tilesY) / 2
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		ty0, ty1, fy := neighbours(centerY, float64(y)+0.5)
		srow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range srow {
			tx0, tx1, fx := neighbours(centerX, float64(x)+0.5)
			top := (1-fx)*float64(luts[ty0*tilesX+tx0][v]) + fx*float64(luts[ty0*tilesX+tx1][v])
			bottom := (1-fx)*float64(luts[ty1*tilesX+tx0][v]) + fx*float64(luts[ty1*tilesX+tx1][v])
			drow[x] = saturate((1-fy)*top + fy*bottom)
		}
	})

	return dst, nil
}

// tileLUT builds the clipped, redistributed equalization table of one tile.
func (c *ClaheCommand) tileLUT(gray *image.Gray, x0, y0, x1, y1 int) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for _, v := range gray.Pix[y*gray.Stride+x0 : y*gray.Stride+x1] {
			hist[v]++
		}
	}

	area := (x1 - x0) * (y1 - y0)
	clip := max(int(c.params.ClipLimit*float64(area)/256), 1)

	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	bonus := excess / 256
	residual := excess - bonus*256
	for i := range hist {
		hist[i] += bonus
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	scale := 255 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = saturate(float64(sum) * scale)
	}
	return lut
}

// neighbours finds the two tile centres surrounding pos and the blend weight towards the second.
func neighbours(centers []float64, pos float64) (int, int, float64) {
	last := len(centers) - 1
	if pos <= centers[0] {
		return 0, 0, 0
	}
	if pos >= centers[last] {
		return last, last, 0
	}
	i := 0
	for i < last && centers[i+1] < pos {
		i++
	}
	span := centers[i+1] - centers[i]
	if span <= 0 {
		return i, i, 0
	}
	return i, i + 1, (pos - centers[i]) / span
}

// GetParams returns the typed parameters
func (c *ClaheCommand) GetParams() *ClaheParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ClaheCommandName, NewClaheCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ClaheCommandName, err))
	}
}
