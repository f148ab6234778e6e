package flow

import (
	"image"
	"math"
	"testing"
)

// sinusoidGray renders a smooth 2D sinusoid shifted by (sx, sy) pixels.
// Smoothness keeps the Lucas-Kanade linearisation valid for 1px motion.
func sinusoidGray(w, h int, sx, sy float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 +
				50*math.Sin(2*math.Pi*(float64(x)-sx)/24) +
				40*math.Sin(2*math.Pi*(float64(y)-sy)/24)
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	return img
}

func TestLucasKanadeRecoversUnitShift(t *testing.T) {
	const w, h = 96, 96
	prev := sinusoidGray(w, h, 0, 0)
	curr := sinusoidGray(w, h, 1, 0)

	lk := NewLucasKanade(0)
	fld, err := lk.Flow(prev, curr)
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	if fld.W != w || fld.H != h {
		t.Fatalf("field size %dx%d, want %dx%d", fld.W, fld.H, w, h)
	}

	// Average over the central region, away from clamped-gradient borders.
	var dx, dy float64
	n := 0
	for y := 24; y < h-24; y++ {
		for x := 24; x < w-24; x++ {
			v := fld.At(x, y)
			dx += float64(v.DX)
			dy += float64(v.DY)
			n++
		}
	}
	dx /= float64(n)
	dy /= float64(n)
	if math.Abs(dx-1) > 0.25 {
		t.Fatalf("mean dx = %v, want ~1", dx)
	}
	if math.Abs(dy) > 0.25 {
		t.Fatalf("mean dy = %v, want ~0", dy)
	}
}

func TestLucasKanadeBlankReference(t *testing.T) {
	prev := image.NewGray(image.Rect(0, 0, 48, 32))
	curr := sinusoidGray(48, 32, 0, 0)

	fld, err := NewLucasKanade(0).Flow(prev, curr)
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	// A blank previous frame has zero gradients everywhere, so every window
	// is singular and the field stays zero.
	for i, v := range fld.Vec {
		if v.DX != 0 || v.DY != 0 {
			t.Fatalf("vec[%d] = %+v, want zero", i, v)
		}
	}
}

func TestLucasKanadeSizeMismatch(t *testing.T) {
	if _, err := NewLucasKanade(0).Flow(image.NewGray(image.Rect(0, 0, 10, 10)), image.NewGray(image.Rect(0, 0, 12, 10))); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestLucasKanadeIdenticalFrames(t *testing.T) {
	frame := sinusoidGray(64, 64, 0, 0)
	fld, err := NewLucasKanade(0).Flow(frame, frame)
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	for i, v := range fld.Vec {
		if math.Abs(float64(v.DX)) > 1e-6 || math.Abs(float64(v.DY)) > 1e-6 {
			t.Fatalf("vec[%d] = %+v, want zero for identical frames", i, v)
		}
	}
}
