// Package capture provides a desktop-capture frame source, for motion
// sensing without a camera attached.
package capture

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nfnt/resize"
	"github.com/vova616/screenshot"
)

// ScreenSource yields desktop grabs downscaled to a fixed resolution, so the
// downstream aggregator sees a stable frame geometry regardless of the actual
// screen size. Frames come from the shared pool; callers that are done with a
// frame may hand it back via RecycleFrame.
type ScreenSource struct {
	width  int
	height int
	logger *slog.Logger

	grabs     atomic.Uint64
	failures  atomic.Uint64
	grabNanos atomic.Uint64
}

// ScreenStats summarises grab behaviour for instrumentation.
type ScreenStats struct {
	Grabs    uint64
	Failures uint64
	AvgGrab  time.Duration
}

// NewScreenSource probes the display once so an unavailable screen surfaces
// at construction rather than as a silent empty stream.
func NewScreenSource(width, height int, logger *slog.Logger) (*ScreenSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", width, height)
	}
	if _, err := screenshot.CaptureScreen(); err != nil {
		return nil, fmt.Errorf("capture: screen unavailable: %w", err)
	}
	return &ScreenSource{width: width, height: height, logger: logger}, nil
}

// Size returns the fixed output resolution.
func (s *ScreenSource) Size() (int, int) { return s.width, s.height }

// Read grabs the screen and scales it to the configured resolution. A failed
// grab ends the stream; transient capture errors are the caller's concern.
func (s *ScreenSource) Read() (image.Image, bool) {
	start := time.Now()
	img, err := screenshot.CaptureScreen()
	if err != nil {
		s.failures.Add(1)
		if s.logger != nil {
			s.logger.Error("capture.grab", "error", err)
		}
		return nil, false
	}
	scaled := resize.Resize(uint(s.width), uint(s.height), img, resize.Bilinear)
	out := copyToPooled(scaled)
	s.grabs.Add(1)
	s.grabNanos.Add(uint64(time.Since(start).Nanoseconds()))
	return out, true
}

// Close implements the source contract; the screen needs no teardown.
func (s *ScreenSource) Close() error { return nil }

// Stats returns a snapshot of the grab counters.
func (s *ScreenSource) Stats() ScreenStats {
	grabs := s.grabs.Load()
	total := s.grabNanos.Load()
	var avg time.Duration
	if grabs > 0 {
		avg = time.Duration(total / grabs)
	}
	return ScreenStats{Grabs: grabs, Failures: s.failures.Load(), AvgGrab: avg}
}

func copyToPooled(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := AcquireFrame(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
