// Package pose estimates raw head angles from three face landmarks.
package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
)

// minFaceWidth is the smallest face width, in pixels, treated as a real face.
const minFaceWidth = 1e-9

var (
	// ErrDegenerateGeometry is returned when the face edges coincide.
	ErrDegenerateGeometry = errors.New("face width is zero")
	// ErrInvalidMeasurement is returned for NaN or infinite coordinates.
	ErrInvalidMeasurement = errors.New("non-finite landmark coordinate")
)

// Angles is a raw head orientation in degrees.
type Angles struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Estimator maps nose and face-edge positions to head angles.
// It is stateless.
type Estimator struct {
	cfg config.PoseConfig
}

// NewEstimator creates an Estimator with the given tunables.
func NewEstimator(cfg config.PoseConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate returns the head angles for one frame. The nose offset from the
// face centre is normalized by face width, so the result does not depend
// on how far the user sits from the camera.
func (e *Estimator) Estimate(nose, left, right detector.Point2D) (Angles, error) {
	for _, p := range [3]detector.Point2D{nose, left, right} {
		if !finite(p.X) || !finite(p.Y) {
			return Angles{}, ErrInvalidMeasurement
		}
	}

	width := left.Distance(right)
	if width < minFaceWidth {
		return Angles{}, ErrDegenerateGeometry
	}

	cx := (left.X + right.X) / 2
	cy := (left.Y + right.Y) / 2
	dx := (nose.X - cx) / width
	dy := (nose.Y - cy) / width

	span := e.cfg.MaxAngle * 2
	return Angles{
		X: (dx-e.cfg.ForwardRatio)*span + e.cfg.XOffset,
		Y: dy * span,
	}, nil
}

// EstimateFace pulls the nose tip and face edges out of a landmark frame
// and estimates its angles.
func (e *Estimator) EstimateFace(face *detector.FaceLandmarks) (Angles, error) {
	nose, err := face.Pixel(detector.NoseTip)
	if err != nil {
		return Angles{}, fmt.Errorf("nose: %w", err)
	}
	left, err := face.Pixel(detector.FaceLeft)
	if err != nil {
		return Angles{}, fmt.Errorf("left edge: %w", err)
	}
	right, err := face.Pixel(detector.FaceRight)
	if err != nil {
		return Angles{}, fmt.Errorf("right edge: %w", err)
	}
	return e.Estimate(nose, left, right)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
