// Package tracker runs the per-frame pointer pipeline: head angle
// estimation, Kalman filtering, adaptive smoothing and screen mapping,
// alongside double-blink detection.
package tracker

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/filter"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/screen"
)

var (
	// ErrDegenerateGeometry is returned when the face or an eye has zero width.
	ErrDegenerateGeometry = errors.New("degenerate face geometry")
	// ErrInvalidMeasurement is returned when a landmark yields a non-finite value.
	ErrInvalidMeasurement = errors.New("invalid measurement")
)

// Output is the result of one processed frame.
type Output struct {
	Point    screen.Point `json:"point"`
	Raw      pose.Angles  `json:"raw"`
	Filtered pose.Angles  `json:"filtered"`
	Smoothed pose.Angles  `json:"smoothed"`
	EAR      float64      `json:"ear"`
	Blinked  bool         `json:"blinked"`
	Locked   bool         `json:"locked"`
	Settled  bool         `json:"settled"`
	Frame    uint64       `json:"frame"`
}

// Tracker owns the filter state for one tracking session.
// It is not safe for concurrent use.
type Tracker struct {
	cfg config.Tracking

	estimator *pose.Estimator
	kalmanX   *filter.Kalman
	kalmanY   *filter.Kalman
	blink     *gesture.BlinkDetector
	smoother  *filter.Smoother
	mapper    *screen.Mapper

	frames uint64
}

// New creates a Tracker. cfg.Screen must carry the real screen size.
func New(cfg config.Tracking, opts ...filter.Option) *Tracker {
	return &Tracker{
		cfg:       cfg,
		estimator: pose.NewEstimator(cfg.Pose),
		kalmanX:   filter.NewKalman(cfg.Kalman),
		kalmanY:   filter.NewKalman(cfg.Kalman),
		blink:     gesture.NewBlinkDetector(cfg.Blink),
		smoother:  filter.NewSmoother(cfg.Smoothing, opts...),
		mapper:    screen.NewMapper(cfg.Screen),
	}
}

// Process runs one frame through the pipeline. A nil face means no face
// was found; it returns ok=false and leaves all state untouched. Frames
// that fail validation are rejected before any state changes.
func (t *Tracker) Process(face *detector.FaceLandmarks) (out Output, ok bool, err error) {
	if face == nil {
		return Output{}, false, nil
	}

	raw, err := t.estimator.EstimateFace(face)
	if err != nil {
		return Output{}, false, classify(err)
	}

	ear, err := gesture.FaceEAR(face)
	if err != nil {
		return Output{}, false, classify(err)
	}
	if math.IsNaN(ear) || math.IsInf(ear, 0) {
		return Output{}, false, fmt.Errorf("%w: eye aspect ratio %v", ErrInvalidMeasurement, ear)
	}

	fx, err := t.kalmanX.Update(raw.X)
	if err != nil {
		return Output{}, false, classify(err)
	}
	fy, err := t.kalmanY.Update(raw.Y)
	if err != nil {
		return Output{}, false, classify(err)
	}

	blinked := t.blink.Update(ear)
	smoothed := t.smoother.Update(fx, fy)

	p := t.mapper.Map(smoothed.X, smoothed.Y)
	if t.cfg.Screen.Clamp {
		p = t.mapper.Clamp(p)
	}

	t.frames++
	return Output{
		Point:    p,
		Raw:      raw,
		Filtered: pose.Angles{X: fx, Y: fy},
		Smoothed: pose.Angles{X: smoothed.X, Y: smoothed.Y},
		EAR:      ear,
		Blinked:  blinked,
		Locked:   smoothed.Locked,
		Settled:  smoothed.Settled,
		Frame:    t.frames,
	}, true, nil
}

// Blink returns the blink detector's counters.
func (t *Tracker) Blink() gesture.BlinkState {
	return t.blink.State()
}

// Frames returns how many frames produced output.
func (t *Tracker) Frames() uint64 {
	return t.frames
}

// Reset returns every stage to its initial state.
func (t *Tracker) Reset() {
	t.kalmanX.Reset()
	t.kalmanY.Reset()
	t.blink.Reset()
	t.smoother.Reset()
	t.frames = 0
}

// classify wraps stage errors in the tracker's sentinels. Missing
// landmarks pass through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, pose.ErrDegenerateGeometry), errors.Is(err, gesture.ErrDegenerateGeometry):
		return fmt.Errorf("%w: %w", ErrDegenerateGeometry, err)
	case errors.Is(err, pose.ErrInvalidMeasurement), errors.Is(err, filter.ErrInvalidMeasurement):
		return fmt.Errorf("%w: %w", ErrInvalidMeasurement, err)
	}
	return err
}
