package flow

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"
)

const defaultMoveStep = 16

// Aggregator turns a stream of color frames into one averaged velocity per
// frame. It owns two persistent grayscale buffers (previous and current), a
// persistent scaled color buffer and a raw-byte staging buffer, all allocated
// once at construction for a fixed scaled resolution and overwritten in place
// on every call.
//
// An Aggregator is not safe for concurrent use: each call rotates the
// grayscale buffers and updates timing state.
type Aggregator struct {
	opts    Options
	scaledW int
	scaledH int
	step    int
	mvColor color.RGBA

	estimator Estimator
	display   Display
	logger    *slog.Logger

	scaled  *image.RGBA    // persistent scaled color buffer
	gray    [2]*image.Gray // fixed pool; cur indexes the slot receiving this call's frame
	cur     int
	staging []uint8 // BGR staging for ProcessBytes, len Width*Height*3

	prevTime time.Time // zero = unset
	now      func() time.Time

	frames       uint64
	processNanos uint64
}

// NewAggregator validates opts and allocates all per-session buffers.
// The estimator is required; display and logger may be nil.
func NewAggregator(opts Options, est Estimator, disp Display, logger *slog.Logger) (*Aggregator, error) {
	if est == nil {
		return nil, fmt.Errorf("flow: estimator is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("flow: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	scaledown := opts.ScaleDown
	if scaledown == 0 {
		scaledown = 1
	}
	if scaledown < 1 {
		return nil, fmt.Errorf("flow: scaledown must be >= 1, got %d", opts.ScaleDown)
	}
	step := opts.MoveStep
	if step == 0 {
		step = defaultMoveStep
	}
	if step < 1 {
		return nil, fmt.Errorf("flow: move step must be >= 1, got %d", opts.MoveStep)
	}
	sw := opts.Width / scaledown
	sh := opts.Height / scaledown
	if sw < 1 || sh < 1 {
		return nil, fmt.Errorf("flow: scaledown %d degenerates %dx%d to %dx%d", scaledown, opts.Width, opts.Height, sw, sh)
	}
	if logger != nil && (step > sw || step > sh) {
		logger.Warn("flow.degenerate_stride", "move_step", step, "scaled_width", sw, "scaled_height", sh)
	}
	mvColor := opts.FlowColor
	if mvColor.A == 0 {
		mvColor = color.RGBA{G: 0xff, A: 0xff}
	}
	a := &Aggregator{
		opts:      opts,
		scaledW:   sw,
		scaledH:   sh,
		step:      step,
		mvColor:   mvColor,
		estimator: est,
		display:   disp,
		logger:    logger,
		scaled:    image.NewRGBA(image.Rect(0, 0, sw, sh)),
		staging:   make([]uint8, opts.Width*opts.Height*3),
		now:       time.Now,
	}
	a.gray[0] = image.NewGray(image.Rect(0, 0, sw, sh))
	a.gray[1] = image.NewGray(image.Rect(0, 0, sw, sh))
	return a, nil
}

// ScaledSize returns the dimensions the flow field is computed at.
func (a *Aggregator) ScaledSize() (int, int) { return a.scaledW, a.scaledH }

// ProcessBytes processes one frame supplied as a flat interleaved RGB buffer
// of length Width*Height*3. The red and blue channels are swapped into the
// staging buffer before the frame takes the ProcessFrame path. A buffer of
// any other length fails with ErrInputSize and leaves all state untouched.
func (a *Aggregator) ProcessBytes(rgb []byte, distance, timestep float64) (Velocity, bool, error) {
	if len(rgb) != len(a.staging) {
		return Velocity{}, false, fmt.Errorf("%w: got %d bytes, want %d", ErrInputSize, len(rgb), len(a.staging))
	}
	for i := 0; i < len(rgb); i += 3 {
		a.staging[i] = rgb[i+2]
		a.staging[i+1] = rgb[i+1]
		a.staging[i+2] = rgb[i]
	}
	frame := &bgrFrame{pix: a.staging, w: a.opts.Width, h: a.opts.Height}
	return a.ProcessFrame(frame, distance, timestep)
}

// ProcessFrame processes one color frame at native resolution and returns the
// averaged velocity. distance is the subject distance in meters (0 = keep
// pixel units). timestep is the elapsed seconds since the previous frame;
// 0 means derive it from the wall clock, falling back to 1 on the first call.
//
// stopped reports that an attached display received a cancel request; in that
// case no velocity is returned and the aggregator state does not advance.
func (a *Aggregator) ProcessFrame(frame image.Image, distance, timestep float64) (Velocity, bool, error) {
	start := a.now()

	a.resizeInto(frame)
	a.grayInto()

	// First call runs against the never-written previous buffer: the flow is
	// defined but reflects motion against a blank reference.
	fld, err := a.estimator.Flow(a.gray[1-a.cur], a.gray[a.cur])
	if err != nil {
		return Velocity{}, false, fmt.Errorf("flow: estimator: %w", err)
	}
	if fld.W != a.scaledW || fld.H != a.scaledH {
		return Velocity{}, false, fmt.Errorf("flow: estimator returned %dx%d field, want %dx%d", fld.W, fld.H, a.scaledW, a.scaledH)
	}

	var xsum, ysum float64
	count := 0
	for y := 0; y < fld.H; y += a.step {
		for x := 0; x < fld.W; x += a.step {
			v := fld.At(x, y)
			xsum += float64(v.DX)
			ysum += float64(v.DY)
			count++
			if a.display != nil {
				drawLine(a.scaled, x, y, x+int(v.DX), y+int(v.DY), a.mvColor)
				drawDot(a.scaled, x, y, a.mvColor)
			}
		}
	}

	if a.display != nil {
		stop, err := a.display.Present(a.scaled)
		if err != nil {
			return Velocity{}, false, fmt.Errorf("flow: display: %w", err)
		}
		if stop {
			// Cancellation does not advance state: buffers are not rotated
			// and the stored timestamp stays as it was.
			return Velocity{}, true, nil
		}
	}

	a.cur = 1 - a.cur

	nowT := a.now()
	ts := a.timestep(timestep, nowT)
	a.prevTime = nowT

	vel := Velocity{
		X: a.velocity(xsum, count, fld.W, distance, ts),
		Y: a.velocity(ysum, count, fld.H, distance, ts),
	}

	a.frames++
	a.processNanos += uint64(nowT.Sub(start).Nanoseconds())
	if a.logger != nil {
		a.logger.Debug("flow.frame", "vx", vel.X, "vy", vel.Y, "samples", count, "timestep", ts)
	}
	return vel, false, nil
}

// timestep resolves the elapsed seconds for this call. An explicit nonzero
// value wins; otherwise the wall clock delta from the previous call is used,
// with 1 as the first-call fallback.
func (a *Aggregator) timestep(explicit float64, now time.Time) float64 {
	if explicit != 0 {
		return explicit
	}
	if a.prevTime.IsZero() {
		return 1
	}
	d := now.Sub(a.prevTime).Seconds()
	if d <= 0 {
		return 1
	}
	return d
}

// velocity averages an axis sum over the visited sample count and timestep,
// then converts to meters/second when both a perspective angle and a subject
// distance are available.
func (a *Aggregator) velocity(sum float64, count, dim int, distance, ts float64) float64 {
	px := sum / float64(count) / ts
	if a.opts.PerspectiveAngle == 0 || distance == 0 {
		return px
	}
	distancePixels := (float64(dim) / 2) / math.Tan(a.opts.PerspectiveAngle/2)
	pixelsPerMeter := distancePixels / distance
	return px / pixelsPerMeter
}

// resizeInto nearest-neighbour samples frame into the persistent scaled
// color buffer.
func (a *Aggregator) resizeInto(frame image.Image) {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < a.scaledH; y++ {
		sy := y * h / a.scaledH
		for x := 0; x < a.scaledW; x++ {
			sx := x * w / a.scaledW
			r, g, bl, _ := frame.At(b.Min.X+sx, b.Min.Y+sy).RGBA()
			i := a.scaled.PixOffset(x, y)
			p := a.scaled.Pix[i : i+4 : i+4]
			p[0] = uint8(r >> 8)
			p[1] = uint8(g >> 8)
			p[2] = uint8(bl >> 8)
			p[3] = 0xff
		}
	}
}

// grayInto converts the scaled color buffer to grayscale into the slot that
// holds the current frame for this call.
func (a *Aggregator) grayInto() {
	dst := a.gray[a.cur]
	for y := 0; y < a.scaledH; y++ {
		for x := 0; x < a.scaledW; x++ {
			i := a.scaled.PixOffset(x, y)
			p := a.scaled.Pix[i : i+4 : i+4]
			g := 0.2126*float64(p[0]) + 0.7152*float64(p[1]) + 0.0722*float64(p[2])
			dst.Pix[y*dst.Stride+x] = uint8(g)
		}
	}
}
