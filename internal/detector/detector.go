package detector

import "gocv.io/x/gocv"

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// prominent face. It returns nil, nil when no face is visible.
	Detect(frame *gocv.Mat) (*FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MaxFaces is the maximum number of faces the model tracks (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// RefineLandmarks enables the iris-refined 478 point mesh.
	RefineLandmarks bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		RefineLandmarks: true,
	}
}
