package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	face  *FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector that reports no face.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by Detect. Passing nil simulates an
// empty scene.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture geometry in normalized coordinates on a 640x480 frame.
const (
	fixtureWidth  = 640
	fixtureHeight = 480
)

// FrontalFace returns a face looking straight at the camera with both
// eyes open: the nose tip sits on the midpoint of the face edges.
func FrontalFace() *FaceLandmarks {
	return buildFace(0, 0, 0.03)
}

// TurnedFace returns a frontal face whose nose is shifted by dx and dy,
// in normalized frame units.
func TurnedFace(dx, dy float64) *FaceLandmarks {
	return buildFace(dx, dy, 0.03)
}

// ClosedEyesFace returns a frontal face with both eyelids shut.
func ClosedEyesFace() *FaceLandmarks {
	return buildFace(0, 0, 0.002)
}

// buildFace lays out the landmarks the pointer pipeline reads. lid is the
// half-height of each eye opening.
func buildFace(dx, dy, lid float64) *FaceLandmarks {
	face := &FaceLandmarks{
		Points: make([]Point3D, NumRefinedLandmarks),
		Width:  fixtureWidth,
		Height: fixtureHeight,
		Score:  0.97,
	}

	// Face edges 0.25 apart, centred at x=0.5.
	face.Points[FaceLeft] = Point3D{X: 0.375, Y: 0.5}
	face.Points[FaceRight] = Point3D{X: 0.625, Y: 0.5}
	face.Points[NoseTip] = Point3D{X: 0.5 + dx, Y: 0.5 + dy}

	placeEye(face, LeftEye, 0.44, 0.42, lid)
	placeEye(face, RightEye, 0.56, 0.42, lid)

	return face
}

// placeEye writes a 0.06 wide eye centred at (cx, cy).
func placeEye(face *FaceLandmarks, idx [6]int, cx, cy, lid float64) {
	const half = 0.03
	face.Points[idx[0]] = Point3D{X: cx - half, Y: cy}
	face.Points[idx[1]] = Point3D{X: cx - half/2, Y: cy - lid}
	face.Points[idx[2]] = Point3D{X: cx + half/2, Y: cy - lid}
	face.Points[idx[3]] = Point3D{X: cx + half, Y: cy}
	face.Points[idx[4]] = Point3D{X: cx + half/2, Y: cy + lid}
	face.Points[idx[5]] = Point3D{X: cx - half/2, Y: cy + lid}
}
