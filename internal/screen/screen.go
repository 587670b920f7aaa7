// Package screen maps filtered head angles to screen coordinates.
package screen

import "github.com/ayusman/abhinaya/internal/config"

// Point is a position on screen in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Mapper converts angles to pixels. The x axis is mirrored so that
// turning the head right moves the pointer right on a camera facing
// the user.
type Mapper struct {
	cfg config.ScreenConfig
}

// NewMapper creates a Mapper. cfg.Width and cfg.Height must already be
// resolved to the real screen size.
func NewMapper(cfg config.ScreenConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// Map converts an angle pair to a screen point. The result may lie off
// screen; see Clamp.
func (m *Mapper) Map(xAngle, yAngle float64) Point {
	w := float64(m.cfg.Width)
	h := float64(m.cfg.Height)

	x := (xAngle - m.cfg.XAngleMin) / (m.cfg.XAngleMax - m.cfg.XAngleMin) * w
	x = w - x
	x *= m.cfg.XSensitivity

	y := (yAngle - m.cfg.YAngleMin) / (m.cfg.YAngleMax - m.cfg.YAngleMin) * h
	y *= m.cfg.YSensitivity

	// Conversion truncates toward zero.
	return Point{X: int(x), Y: int(y)}
}

// Clamp limits p to [0, Width) x [0, Height).
func (m *Mapper) Clamp(p Point) Point {
	return Point{
		X: clamp(p.X, 0, m.cfg.Width-1),
		Y: clamp(p.Y, 0, m.cfg.Height-1),
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
