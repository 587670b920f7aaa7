package app

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
)

// LandmarkProvider yields one landmark frame per call. A nil frame with
// a nil error means no face was found.
type LandmarkProvider interface {
	NextFrame() (*detector.FaceLandmarks, error)
}

// CameraProvider reads camera frames and runs the face detector on
// them. While idle it only looks for motion; motion or a visible face
// makes it active, and it drops back to idle after IdleTimeout with
// neither.
type CameraProvider struct {
	mu       sync.Mutex
	cfg      config.CameraConfig
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	preview  *capture.Preview
	now      func() time.Time

	active       bool
	lastActivity time.Time
}

// NewCameraProvider wires a camera to a detector. preview may be nil.
func NewCameraProvider(cfg config.CameraConfig, cam capture.Camera, det detector.Detector, preview *capture.Preview) *CameraProvider {
	return &CameraProvider{
		cfg:      cfg,
		camera:   cam,
		motion:   capture.NewMotionDetector(cfg.MotionThreshold),
		detector: det,
		preview:  preview,
		now:      time.Now,
	}
}

// Open starts the camera at the idle rate.
func (p *CameraProvider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.camera.Open(); err != nil {
		return err
	}
	p.camera.SetFPS(p.cfg.IdleFPS)
	p.active = false
	p.motion.Reset()
	return nil
}

// Close releases the camera, the detector and the motion baseline.
func (p *CameraProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return errors.Join(
		p.camera.Close(),
		p.detector.Close(),
		p.motion.Close(),
	)
}

// Active reports whether the provider is in active mode.
func (p *CameraProvider) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// NextFrame reads one frame and returns the face on it, if any.
func (p *CameraProvider) NextFrame() (*detector.FaceLandmarks, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, err := p.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	if p.preview != nil {
		p.preview.Publish(frame)
	}

	now := p.now()
	if moved, _ := p.motion.Detect(frame); moved {
		p.lastActivity = now
		p.setActive(true)
	}
	if !p.active {
		return nil, nil
	}

	face, err := p.detector.Detect(frame)
	if err != nil {
		return nil, err
	}
	if face != nil {
		p.lastActivity = now
	} else if now.Sub(p.lastActivity) > p.cfg.IdleTimeout {
		p.setActive(false)
	}
	return face, nil
}

func (p *CameraProvider) setActive(active bool) {
	if p.active == active {
		return
	}
	p.active = active
	if active {
		p.camera.SetFPS(p.cfg.ActiveFPS)
	} else {
		p.camera.SetFPS(p.cfg.IdleFPS)
		p.motion.Reset()
	}
}

// ErrReplayDone is returned by a non-looping ReplayProvider once every
// frame has been delivered.
var ErrReplayDone = errors.New("replay finished")

// ReplayProvider delivers a recorded sequence of landmark frames. Nil
// entries stand for frames without a face.
type ReplayProvider struct {
	mu     sync.Mutex
	frames []*detector.FaceLandmarks
	next   int
	loop   bool
}

// NewReplayProvider creates a provider over frames.
func NewReplayProvider(frames []*detector.FaceLandmarks, loop bool) *ReplayProvider {
	return &ReplayProvider{frames: frames, loop: loop}
}

// NextFrame returns the next recorded frame.
func (p *ReplayProvider) NextFrame() (*detector.FaceLandmarks, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next >= len(p.frames) {
		if !p.loop || len(p.frames) == 0 {
			return nil, ErrReplayDone
		}
		p.next = 0
	}
	f := p.frames[p.next]
	p.next++
	return f, nil
}

// Remaining returns how many frames are left before the end of the sequence.
func (p *ReplayProvider) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames) - p.next
}
