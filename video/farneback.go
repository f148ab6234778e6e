package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/soocke/optiflow-go/domain/flow"
)

// Farneback computes dense optical flow with OpenCV's Farneback algorithm,
// using its conventional parameters (3-level pyramid, 15px window).
type Farneback struct{}

// NewFarneback returns a ready-to-use estimator.
func NewFarneback() *Farneback { return &Farneback{} }

// Flow implements flow.Estimator.
func (*Farneback) Flow(prev, curr *image.Gray) (*flow.Field, error) {
	pb, cb := prev.Bounds(), curr.Bounds()
	w, h := pb.Dx(), pb.Dy()
	if cb.Dx() != w || cb.Dy() != h {
		return nil, fmt.Errorf("video: frame size mismatch: %dx%d vs %dx%d", w, h, cb.Dx(), cb.Dy())
	}

	prevMat, err := grayToMat(prev, w, h)
	if err != nil {
		return nil, err
	}
	defer prevMat.Close()
	currMat, err := grayToMat(curr, w, h)
	if err != nil {
		return nil, err
	}
	defer currMat.Close()

	flowMat := gocv.NewMat()
	defer flowMat.Close()
	gocv.CalcOpticalFlowFarneback(prevMat, currMat, &flowMat, 0.5, 3, 15, 3, 5, 1.2, 0)

	data, err := flowMat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("video: flow mat: %w", err)
	}
	fld := flow.NewField(w, h)
	for i := range fld.Vec {
		fld.Vec[i] = flow.Vec2{DX: data[2*i], DY: data[2*i+1]}
	}
	return fld, nil
}

func grayToMat(img *image.Gray, w, h int) (gocv.Mat, error) {
	pix := img.Pix
	if img.Stride != w {
		packed := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(packed[y*w:(y+1)*w], pix[y*img.Stride:y*img.Stride+w])
		}
		pix = packed
	}
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("video: gray mat: %w", err)
	}
	return m, nil
}
