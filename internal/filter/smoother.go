package filter

import (
	"math"
	"time"

	"github.com/ayusman/abhinaya/internal/config"
)

// Result is the output of one Smoother step.
type Result struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	ChangeX float64 `json:"change_x"`
	ChangeY float64 `json:"change_y"`
	// Locked is set once movement has stayed small for the low movement
	// window. While locked the low smoothing factor is used.
	Locked bool `json:"locked"`
	// Settled is set when movement drops below the second, tighter
	// threshold. It is reported only and does not change the output.
	Settled bool    `json:"settled"`
	Factor  float64 `json:"factor"`
}

// Option configures a Smoother.
type Option func(*Smoother)

// WithClock replaces time.Now as the Smoother's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Smoother) {
		s.now = now
	}
}

// Smoother applies adaptive exponential smoothing and axis locking to
// angle pairs. Small sustained movement switches it to a heavier
// smoothing factor, and movement that is mostly along one axis has the
// other axis suppressed.
//
// A Smoother is not safe for concurrent use.
type Smoother struct {
	cfg config.SmoothingConfig
	now func() time.Time

	prevX, prevY float64
	hasPrev      bool

	windowStart time.Time
	windowOpen  bool

	locked  bool
	settled bool
	factor  float64
}

// NewSmoother creates a Smoother with no history.
func NewSmoother(cfg config.SmoothingConfig, opts ...Option) *Smoother {
	s := &Smoother{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset clears the history and the movement locks.
func (s *Smoother) Reset() {
	s.prevX, s.prevY = 0, 0
	s.hasPrev = false
	s.windowStart = time.Time{}
	s.windowOpen = false
	s.locked = false
	s.settled = false
	s.factor = s.cfg.FactorHigh
}

// Factor returns the smoothing factor the next Update will use.
func (s *Smoother) Factor() float64 {
	return s.factor
}

// Update smooths one angle pair.
func (s *Smoother) Update(x, y float64) Result {
	sx, sy := x, y
	baseX, baseY := sx, sy
	if s.hasPrev {
		sx = s.factor*x + (1-s.factor)*s.prevX
		sy = s.factor*y + (1-s.factor)*s.prevY
		baseX, baseY = s.prevX, s.prevY
	}

	dx := sx - baseX
	dy := sy - baseY

	// The new factor applies from the next sample on.
	s.trackMovement(dx, dy)
	factor := s.factor
	if s.locked {
		s.factor = s.cfg.FactorLow
	} else {
		s.factor = s.cfg.FactorHigh
	}

	dx, dy = s.lockAxis(dx, dy)

	finalX := baseX + dx
	finalY := baseY + dy
	s.prevX, s.prevY = finalX, finalY
	s.hasPrev = true

	return Result{
		X:       finalX,
		Y:       finalY,
		ChangeX: dx,
		ChangeY: dy,
		Locked:  s.locked,
		Settled: s.settled,
		Factor:  factor,
	}
}

// trackMovement runs the low movement timer. Locks are sticky until a
// movement at or above MovementThreshold clears them.
func (s *Smoother) trackMovement(dx, dy float64) {
	magnitude := math.Hypot(dx, dy)

	if magnitude >= s.cfg.MovementThreshold {
		s.windowOpen = false
		s.windowStart = time.Time{}
		s.locked = false
		s.settled = false
		return
	}

	now := s.now()
	switch {
	case !s.windowOpen:
		s.windowOpen = true
		s.windowStart = now
	case magnitude < s.cfg.MovementThreshold2:
		s.settled = true
	case now.Sub(s.windowStart) >= s.cfg.LowMovementWindow():
		s.locked = true
	}
}

// lockAxis zeroes the minor axis when one axis dominates by more than
// AxisLockThreshold.
func (s *Smoother) lockAxis(dx, dy float64) (float64, float64) {
	ax, ay := math.Abs(dx), math.Abs(dy)
	if ax == 0 || ay == 0 {
		return dx, dy
	}

	ratio := ax / ay
	switch {
	case ratio > s.cfg.AxisLockThreshold:
		return dx, 0
	case ratio < 1/s.cfg.AxisLockThreshold:
		return 0, dy
	}
	return dx, dy
}
