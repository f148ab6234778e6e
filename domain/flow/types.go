package flow

import (
	"errors"
	"image"
	"image/color"
)

// Vec2 is a single optical-flow displacement sample, in pixels.
type Vec2 struct {
	DX, DY float32
}

// Field is a dense optical-flow field: one displacement per pixel, row-major,
// with the same dimensions as the grayscale frames it was computed from. It is
// produced fresh by an Estimator on every call and read-only afterwards.
type Field struct {
	W, H int
	Vec  []Vec2
}

// NewField allocates a zeroed flow field of the given dimensions.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Vec: make([]Vec2, w*h)}
}

// At returns the displacement at pixel (x, y).
func (f *Field) At(x, y int) Vec2 { return f.Vec[y*f.W+x] }

// Set stores the displacement at pixel (x, y).
func (f *Field) Set(x, y int, v Vec2) { f.Vec[y*f.W+x] = v }

// Velocity is a spatially averaged velocity estimate. Units are pixels per
// second, or meters per second when the aggregator was configured with a
// perspective angle and the call supplied a subject distance.
type Velocity struct {
	X, Y float64
}

// Estimator computes a dense flow field between two equal-sized single-channel
// frames. Output dimensions must equal input dimensions.
type Estimator interface {
	Flow(prev, curr *image.Gray) (*Field, error)
}

// Display presents an annotated color frame and polls briefly for a user
// cancel request. stop reports that the user asked to end the stream.
type Display interface {
	Present(frame *image.RGBA) (stop bool, err error)
}

// ErrInputSize reports a raw byte buffer whose length does not match the
// configured native resolution. The aggregator state is left untouched.
var ErrInputSize = errors.New("flow: input buffer size mismatch")

// Options configures an Aggregator. Immutable after construction.
type Options struct {
	// Width and Height are the native (unscaled) frame dimensions in pixels.
	Width  int
	Height int

	// ScaleDown divides the native resolution before flow computation.
	// 0 means 1 (no scaling).
	ScaleDown int

	// MoveStep is the sampling stride in pixels over the flow field.
	// 0 means the default of 16.
	MoveStep int

	// PerspectiveAngle is the camera field-of-view angle in radians.
	// 0 disables physical-unit conversion; velocities stay in pixels/second.
	PerspectiveAngle float64

	// FlowColor is the overlay color for sampled flow vectors. Only used
	// when a display is attached; the zero value means green.
	FlowColor color.RGBA
}

// bgrFrame wraps the raw staging buffer as an image. Pixels are interleaved
// B, G, R — the channel order the conversion pipeline expects internally.
type bgrFrame struct {
	pix  []uint8
	w, h int
}

func (f *bgrFrame) ColorModel() color.Model { return color.RGBAModel }

func (f *bgrFrame) Bounds() image.Rectangle { return image.Rect(0, 0, f.w, f.h) }

func (f *bgrFrame) At(x, y int) color.Color {
	i := (y*f.w + x) * 3
	return color.RGBA{R: f.pix[i+2], G: f.pix[i+1], B: f.pix[i], A: 0xff}
}
