package flow

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

const defaultLKRadius = 7

// LucasKanade is a dense Lucas-Kanade estimator. For every pixel it solves
// the 2x2 structure-tensor system over a square window of the previous
// frame's gradients. Window sums come from summed-area tables so the cost per
// pixel is constant in the window radius. Poorly conditioned windows (flat
// regions, pure edges) yield a zero displacement.
//
// It is deterministic and pure Go, usable both as a runtime estimator and as
// a test double for cgo-backed estimators.
type LucasKanade struct {
	radius int
}

// NewLucasKanade returns an estimator with the given window radius.
// radius < 1 selects the default of 7 (a 15x15 window).
func NewLucasKanade(radius int) *LucasKanade {
	if radius < 1 {
		radius = defaultLKRadius
	}
	return &LucasKanade{radius: radius}
}

// Flow computes the dense displacement field from prev to curr.
func (lk *LucasKanade) Flow(prev, curr *image.Gray) (*Field, error) {
	pb, cb := prev.Bounds(), curr.Bounds()
	w, h := pb.Dx(), pb.Dy()
	if cb.Dx() != w || cb.Dy() != h {
		return nil, fmt.Errorf("flow: frame size mismatch: %dx%d vs %dx%d", w, h, cb.Dx(), cb.Dy())
	}
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("flow: frame too small for gradients: %dx%d", w, h)
	}

	ix := make([]float64, w*h)
	iy := make([]float64, w*h)
	it := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*w + x
			xl, xr := clamp(x-1, w), clamp(x+1, w)
			yu, yd := clamp(y-1, h), clamp(y+1, h)
			ix[off] = (grayAt(prev, pb, xr, y) - grayAt(prev, pb, xl, y)) / 2
			iy[off] = (grayAt(prev, pb, x, yd) - grayAt(prev, pb, x, yu)) / 2
			it[off] = grayAt(curr, cb, x, y) - grayAt(prev, pb, x, y)
		}
	}

	ixx := integral(ix, ix, w, h)
	ixy := integral(ix, iy, w, h)
	iyy := integral(iy, iy, w, h)
	ixt := integral(ix, it, w, h)
	iyt := integral(iy, it, w, h)

	fld := NewField(w, h)
	a := mat.NewDense(2, 2, nil)
	rhs := mat.NewVecDense(2, nil)
	var sol mat.VecDense
	r := lk.radius
	for y := 0; y < h; y++ {
		y0, y1 := maxInt(y-r, 0), minInt(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := maxInt(x-r, 0), minInt(x+r+1, w)
			sxx := window(ixx, w, x0, y0, x1, y1)
			sxy := window(ixy, w, x0, y0, x1, y1)
			syy := window(iyy, w, x0, y0, x1, y1)
			if sxx*syy-sxy*sxy <= 1.0 {
				continue
			}
			a.Set(0, 0, sxx)
			a.Set(0, 1, sxy)
			a.Set(1, 0, sxy)
			a.Set(1, 1, syy)
			rhs.SetVec(0, -window(ixt, w, x0, y0, x1, y1))
			rhs.SetVec(1, -window(iyt, w, x0, y0, x1, y1))
			if err := sol.SolveVec(a, rhs); err != nil {
				continue
			}
			fld.Set(x, y, Vec2{DX: float32(sol.AtVec(0)), DY: float32(sol.AtVec(1))})
		}
	}
	return fld, nil
}

func grayAt(img *image.Gray, b image.Rectangle, x, y int) float64 {
	return float64(img.Pix[(y+b.Min.Y-img.Rect.Min.Y)*img.Stride+(x+b.Min.X-img.Rect.Min.X)])
}

// integral builds a (w+1)x(h+1) summed-area table of the elementwise product
// of a and b.
func integral(a, b []float64, w, h int) []float64 {
	t := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowsum := 0.0
		for x := 0; x < w; x++ {
			rowsum += a[y*w+x] * b[y*w+x]
			t[(y+1)*(w+1)+x+1] = t[y*(w+1)+x+1] + rowsum
		}
	}
	return t
}

// window sums the table over the half-open rectangle [x0,x1) x [y0,y1).
func window(t []float64, w, x0, y0, x1, y1 int) float64 {
	s := w + 1
	return t[y1*s+x1] - t[y0*s+x1] - t[y1*s+x0] + t[y0*s+x0]
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
