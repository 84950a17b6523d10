package commands

import (
	"image"
	"sync/atomic"
	"testing"
)

func TestParallelFor_VisitsEveryRowOnce(t *testing.T) {
	for _, rows := range []int{0, 1, 31, 32, 33, 1000} {
		counts := make([]int32, rows)
		parallelFor(rows, func(y int) {
			atomic.AddInt32(&counts[y], 1)
		})
		for y, c := range counts {
			if c != 1 {
				t.Fatalf("rows=%d: row %d visited %d times", rows, y, c)
			}
		}
	}
}

func TestMapGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 100))
	for i := range src.Pix {
		src.Pix[i] = uint8(i % 256)
	}
	var invert [256]uint8
	for i := range invert {
		invert[i] = uint8(255 - i)
	}

	dst := mapGray(src, &invert)
	for i, v := range src.Pix {
		if dst.Pix[i] != 255-v {
			t.Fatalf("pixel %d = %d, want %d", i, dst.Pix[i], 255-v)
		}
	}
}
