package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestMotionDetector_Frames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	black2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black2.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	tests := []struct {
		name      string
		threshold float64
		second    *gocv.Mat
		want      bool
	}{
		{"identical frames", 1.0, &black2, false},
		{"black to white", 1.0, &white, true},
		{"threshold above full change", 100.0, &white, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if moved, pct := md.Detect(&black); moved || pct != 0 {
				t.Fatalf("baseline frame reported motion %v %f", moved, pct)
			}

			moved, pct := md.Detect(tt.second)
			if moved != tt.want {
				t.Errorf("Detect() = %v (%.1f%%), want %v", moved, pct, tt.want)
			}
		})
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 0, 0, 0))

	md.Detect(&black)
	md.Reset()

	if moved, _ := md.Detect(&white); moved {
		t.Error("first frame after Reset should only set a baseline")
	}
}

func TestMotionDetector_NilFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if moved, pct := md.Detect(nil); moved || pct != 0 {
		t.Errorf("Detect(nil) = %v, %f", moved, pct)
	}
	md.Close()
	md.Close()
}
