package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const escapeKey = 27

// Window shows annotated frames in an OpenCV highgui window and polls one
// millisecond per frame for an ESC keypress, which requests a graceful stop.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named display window.
func NewWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name)}
}

// Present implements flow.Display.
func (w *Window) Present(frame *image.RGBA) (bool, error) {
	mat, err := gocv.ImageToMatRGBA(frame)
	if err != nil {
		return false, fmt.Errorf("video: frame to mat: %w", err)
	}
	defer mat.Close()
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	w.win.IMShow(bgr)
	return w.win.WaitKey(1) == escapeKey, nil
}

// Close destroys the window.
func (w *Window) Close() error { return w.win.Close() }
