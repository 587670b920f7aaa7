// Package capture reads camera frames and gates processing on motion.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/config"
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device delivers no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera is a source of BGR frames. Callers own the returned Mat and
// must Close it.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	Size() (width, height int)
	IsOpen() bool
}

// deviceCamera reads from a local video device through OpenCV.
type deviceCamera struct {
	mu      sync.Mutex
	cfg     config.CameraConfig
	fps     int
	capture *gocv.VideoCapture
}

// NewCamera creates a Camera for cfg.Device. It starts at cfg.IdleFPS;
// the pipeline raises the rate once a face is in view.
func NewCamera(cfg config.CameraConfig) Camera {
	return &deviceCamera{
		cfg: cfg,
		fps: cfg.IdleFPS,
	}
}

// Open starts capturing at the configured resolution.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	return nil
}

// Close releases the device. Closing a camera that is not open is a no-op.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame grabs the next frame.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Size returns the frame size the device actually delivers, falling
// back to the requested size before the device is opened.
func (c *deviceCamera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return c.cfg.Width, c.cfg.Height
	}
	return int(c.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(c.capture.Get(gocv.VideoCaptureFrameHeight))
}

// IsOpen reports whether the device is capturing.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
