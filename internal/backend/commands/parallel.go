package commands

import (
	"image"
	"runtime"
	"sync"
)

// minRowsPerBand keeps small images on the calling goroutine.
const minRowsPerBand = 32

// parallelFor calls fn for every row in [0, rows), splitting the rows into contiguous
// bands, one per worker. fn must only write to its own row.
func parallelFor(rows int, fn func(y int)) {
	if rows <= 0 {
		return
	}
	bands := min(runtime.GOMAXPROCS(0), (rows+minRowsPerBand-1)/minRowsPerBand)
	if bands <= 1 {
		for y := 0; y < rows; y++ {
			fn(y)
		}
		return
	}

	bandSize := (rows + bands - 1) / bands
	var wg sync.WaitGroup
	for start := 0; start < rows; start += bandSize {
		start := start
		end := min(start+bandSize, rows)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := start; y < end; y++ {
				fn(y)
			}
		}()
	}
	wg.Wait()
}

// mapGray returns a copy of src with every intensity replaced through lut.
func mapGray(src *image.Gray, lut *[256]uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallelFor(h, func(y int) {
		in := src.Pix[y*src.Stride : y*src.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range in {
			out[x] = lut[v]
		}
	})
	return dst
}
