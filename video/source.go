// Package video provides the OpenCV-backed collaborators of the flow
// pipeline: frame sources, the Farneback dense-flow estimator and a display
// window.
package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Source yields a sequence of color frames. Read returns false when the
// stream is exhausted; that is a normal end, not an error.
type Source interface {
	Read() (image.Image, bool)
	Size() (width, height int)
	Close() error
}

// CaptureSource wraps a gocv.VideoCapture (camera device or video file).
type CaptureSource struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
	w   int
	h   int
}

// OpenFile opens a video file as a frame source.
func OpenFile(path string) (*CaptureSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("video: open file %s: %w", path, err)
	}
	return newCaptureSource(vc)
}

// OpenCamera opens a camera device by index as a frame source.
func OpenCamera(device int) (*CaptureSource, error) {
	vc, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("video: open camera %d: %w", device, err)
	}
	return newCaptureSource(vc)
}

func newCaptureSource(vc *gocv.VideoCapture) (*CaptureSource, error) {
	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if w <= 0 || h <= 0 {
		vc.Close()
		return nil, fmt.Errorf("video: capture reports invalid frame size %dx%d", w, h)
	}
	return &CaptureSource{cap: vc, mat: gocv.NewMat(), w: w, h: h}, nil
}

// Size returns the native frame dimensions reported by the capture.
func (s *CaptureSource) Size() (int, int) { return s.w, s.h }

// Read decodes the next frame. It returns false at end of stream or when a
// frame cannot be decoded.
func (s *CaptureSource) Read() (image.Image, bool) {
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, false
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, false
	}
	return img, true
}

// Close releases the capture and its decode buffer.
func (s *CaptureSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}
