// Package detector provides face landmark detection for head-pointer control.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Face landmark indices following the MediaPipe face mesh topology.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip   = 1
	FaceLeft  = 234
	FaceRight = 454

	// NumLandmarks is the size of the base face mesh. Refined meshes add
	// ten iris points after these.
	NumLandmarks        = 468
	NumRefinedLandmarks = 478
)

// Eye contour indices ordered outer corner, two upper lid points, inner
// corner, two lower lid points.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{263, 387, 385, 362, 380, 373}
)

// ErrMissingLandmark is returned when a frame lacks a required landmark index.
var ErrMissingLandmark = errors.New("landmark missing from frame")

// Point3D is a normalized landmark position. X and Y are in [0,1) relative
// to the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point2D is a position in pixel space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point2D) Distance(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// FaceLandmarks is one frame's face mesh for a single face.
// Width and Height are the dimensions of the source frame in pixels.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Score  float64   `json:"score"`
}

// Pixel returns landmark i in pixel space. Coordinates are truncated toward
// zero, matching how the landmarks are rasterized onto the frame.
func (f *FaceLandmarks) Pixel(i int) (Point2D, error) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point2D{}, fmt.Errorf("%w: index %d", ErrMissingLandmark, i)
	}
	p := f.Points[i]
	return Point2D{
		X: math.Trunc(p.X * float64(f.Width)),
		Y: math.Trunc(p.Y * float64(f.Height)),
	}, nil
}

// Pixels returns the six pixel-space points of an eye contour.
func (f *FaceLandmarks) Pixels(indices [6]int) ([6]Point2D, error) {
	var out [6]Point2D
	for k, idx := range indices {
		p, err := f.Pixel(idx)
		if err != nil {
			return out, err
		}
		out[k] = p
	}
	return out, nil
}
