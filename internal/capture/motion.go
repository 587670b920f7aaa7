package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// motionWidth is the width frames are shrunk to before differencing.
	// Motion gating only needs a coarse signal.
	motionWidth = 160
	// motionBlur is the Gaussian kernel applied to the shrunk frame.
	motionBlur = 7
	// pixelDelta is the grey level change that counts a pixel as moved.
	pixelDelta = 25
)

// MotionDetector compares each frame with the one before it and reports
// the share of pixels that changed. The pipeline uses it to wake from
// idle when someone moves in front of the camera.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64 // percent of changed pixels
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionDetector creates a MotionDetector that reports motion when
// more than threshold percent of pixels change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous frame by more
// than the threshold, and the changed percentage. The first frame after
// creation or Reset only establishes a baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	cur := m.prepare(frame)
	defer cur.Close()

	if !m.hasPrev || m.prev.Rows() != cur.Rows() || m.prev.Cols() != cur.Cols() {
		m.keep(cur)
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	m.keep(cur)

	return changed > m.threshold, changed
}

// prepare converts frame to a small blurred grey image.
func (m *MotionDetector) prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > motionWidth {
		h := gray.Rows() * motionWidth / gray.Cols()
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Point{X: motionWidth, Y: max(h, 1)}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}

	gocv.GaussianBlur(gray, &gray, image.Point{X: motionBlur, Y: motionBlur}, 0, 0, gocv.BorderDefault)
	return gray
}

func (m *MotionDetector) keep(cur gocv.Mat) {
	cur.CopyTo(&m.prev)
	m.hasPrev = true
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPrev = false
}

// Close releases the baseline frame. The detector can still be used
// afterwards; it starts over with a new baseline.
func (m *MotionDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPrev = false
	if err := m.prev.Close(); err != nil {
		return err
	}
	m.prev = gocv.NewMat()
	return nil
}
