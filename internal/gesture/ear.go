// Package gesture detects eye gestures from face landmarks.
package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/abhinaya/internal/detector"
)

// ErrDegenerateGeometry is returned when an eye has no horizontal extent.
var ErrDegenerateGeometry = errors.New("eye width is zero")

// EyeShape is the six point contour of one eye in pixel space, ordered
// outer corner, upper lid, upper lid, inner corner, lower lid, lower lid.
type EyeShape [6]detector.Point2D

// EAR returns the eye aspect ratio: the mean lid opening over the eye
// width. Open eyes sit around 0.25 to 0.35 and a closed eye near zero.
func EAR(eye EyeShape) (float64, error) {
	horizontal := eye[0].Distance(eye[3])
	if horizontal == 0 {
		return 0, ErrDegenerateGeometry
	}
	v1 := eye[1].Distance(eye[5])
	v2 := eye[2].Distance(eye[4])
	return (v1 + v2) / (2 * horizontal), nil
}

// FrameEAR returns the mean aspect ratio of both eyes.
func FrameEAR(left, right EyeShape) (float64, error) {
	l, err := EAR(left)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	r, err := EAR(right)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}
	return (l + r) / 2, nil
}

// FaceEAR extracts both eye contours from a landmark frame and returns
// their mean aspect ratio.
func FaceEAR(face *detector.FaceLandmarks) (float64, error) {
	left, err := face.Pixels(detector.LeftEye)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	right, err := face.Pixels(detector.RightEye)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}
	return FrameEAR(EyeShape(left), EyeShape(right))
}
