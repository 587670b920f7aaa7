package app

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"gocv.io/x/gocv"
)

func TestReplayProvider(t *testing.T) {
	face := detector.FrontalFace()

	t.Run("plays once", func(t *testing.T) {
		p := NewReplayProvider([]*detector.FaceLandmarks{face, nil}, false)

		if got, err := p.NextFrame(); got != face || err != nil {
			t.Errorf("first frame = %v, %v", got, err)
		}
		if got, err := p.NextFrame(); got != nil || err != nil {
			t.Errorf("second frame = %v, %v, want no face", got, err)
		}
		if _, err := p.NextFrame(); !errors.Is(err, ErrReplayDone) {
			t.Errorf("third frame error = %v, want ErrReplayDone", err)
		}
	})

	t.Run("loops", func(t *testing.T) {
		p := NewReplayProvider([]*detector.FaceLandmarks{face}, true)
		for i := 0; i < 5; i++ {
			if got, err := p.NextFrame(); got != face || err != nil {
				t.Fatalf("iteration %d: %v, %v", i, got, err)
			}
		}
	})

	t.Run("empty loop ends", func(t *testing.T) {
		p := NewReplayProvider(nil, true)
		if _, err := p.NextFrame(); !errors.Is(err, ErrReplayDone) {
			t.Errorf("error = %v, want ErrReplayDone", err)
		}
	})
}

// alternatingFrames returns black and white frames so every comparison
// sees motion.
func alternatingFrames(t *testing.T) []*gocv.Mat {
	t.Helper()
	frames := capture.BlankFrames(2, 320, 240)
	frames[1].SetTo(gocv.NewScalar(255, 255, 255, 0))
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func TestCameraProvider_IdleSkipsDetection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	still := capture.BlankFrames(1, 320, 240)
	defer still[0].Close()

	cam := capture.NewMockCamera(still, true)
	det := detector.NewMockDetector()
	det.SetFace(detector.FrontalFace())

	p := NewCameraProvider(config.DefaultConfig().Camera, cam, det, nil)
	if err := p.Open(); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for i := 0; i < 5; i++ {
		face, err := p.NextFrame()
		if err != nil || face != nil {
			t.Fatalf("idle frame %d = %v, %v", i, face, err)
		}
	}
	if det.Calls() != 0 {
		t.Errorf("detector called %d times while idle", det.Calls())
	}
	if p.Active() {
		t.Error("still scene should stay idle")
	}
	if cam.FPS() != config.DefaultConfig().Camera.IdleFPS {
		t.Errorf("camera FPS = %d, want idle rate", cam.FPS())
	}
}

func TestCameraProvider_MotionActivates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cfg := config.DefaultConfig().Camera
	cam := capture.NewMockCamera(alternatingFrames(t), true)
	det := detector.NewMockDetector()

	now := epoch
	p := NewCameraProvider(cfg, cam, det, capture.NewPreview())
	p.now = func() time.Time { return now }
	p.Open()
	defer p.Close()

	// Baseline, then motion.
	p.NextFrame()
	p.NextFrame()
	if !p.Active() {
		t.Fatal("motion should switch to active mode")
	}
	if cam.FPS() != cfg.ActiveFPS {
		t.Errorf("camera FPS = %d, want active rate %d", cam.FPS(), cfg.ActiveFPS)
	}
	if det.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", det.Calls())
	}
}

func TestCameraProvider_IdleTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cfg := config.DefaultConfig().Camera
	frames := alternatingFrames(t)
	cam := capture.NewMockCamera(frames, true)
	det := detector.NewMockDetector()
	det.SetFace(detector.FrontalFace())

	now := epoch
	p := NewCameraProvider(cfg, cam, det, nil)
	p.now = func() time.Time { return now }
	p.Open()
	defer p.Close()

	p.NextFrame()
	if face, _ := p.NextFrame(); face == nil {
		t.Fatal("active provider should return the detected face")
	}

	// Stop the motion and lose the face.
	cam.SetFrames([]*gocv.Mat{frames[0]})
	det.SetFace(nil)

	now = now.Add(cfg.IdleTimeout / 2)
	p.NextFrame()
	p.NextFrame()
	if !p.Active() {
		t.Error("should stay active within the idle timeout")
	}

	now = now.Add(cfg.IdleTimeout + time.Millisecond)
	p.NextFrame()
	if p.Active() {
		t.Error("should go idle once the timeout passes with no face and no motion")
	}
	if cam.FPS() != cfg.IdleFPS {
		t.Errorf("camera FPS = %d, want idle rate %d", cam.FPS(), cfg.IdleFPS)
	}
}

func TestCameraProvider_Errors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := capture.NewMockCamera(alternatingFrames(t), true)
	det := detector.NewMockDetector()
	p := NewCameraProvider(config.DefaultConfig().Camera, cam, det, nil)
	p.Open()
	defer p.Close()

	boom := errors.New("unplugged")
	cam.SetError(boom)
	if _, err := p.NextFrame(); !errors.Is(err, boom) {
		t.Errorf("camera error = %v, want %v", err, boom)
	}

	cam.SetError(nil)
	p.NextFrame()
	detErr := errors.New("model crashed")
	det.SetError(detErr)
	if _, err := p.NextFrame(); !errors.Is(err, detErr) {
		t.Errorf("detector error = %v, want %v", err, detErr)
	}
}
