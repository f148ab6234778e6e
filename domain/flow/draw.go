package flow

import (
	"image"
	"image/color"
)

// drawLine rasterises a straight segment onto img with a simple DDA walk.
// Endpoints outside the image are clipped per pixel.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		setClipped(img, x0, y0, c)
		return
	}
	fx := float64(x0)
	fy := float64(y0)
	sx := float64(dx) / float64(steps)
	sy := float64(dy) / float64(steps)
	for i := 0; i <= steps; i++ {
		setClipped(img, int(fx+0.5), int(fy+0.5), c)
		fx += sx
		fy += sy
	}
}

// drawDot marks a sample origin with a single pixel.
func drawDot(img *image.RGBA, x, y int, c color.RGBA) {
	setClipped(img, x, y, c)
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	img.SetRGBA(x, y, c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
