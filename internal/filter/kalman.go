// Package filter smooths the raw head angles before they reach the screen.
package filter

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/abhinaya/internal/config"
)

// ErrInvalidMeasurement is returned when a measurement is NaN or infinite.
var ErrInvalidMeasurement = errors.New("non-finite measurement")

// Kalman is a constant-velocity Kalman filter over one angle axis.
// The state is [position, velocity]; only position is measured.
//
// Update corrects with the measurement and then predicts one step ahead,
// returning the prediction. The output therefore leads the measurements
// slightly, which offsets some of the lag the smoothing stages add.
//
// A Kalman is not safe for concurrent use.
type Kalman struct {
	f *mat.Dense // transition
	h *mat.Dense // measurement
	q *mat.Dense // process noise
	r float64    // measurement noise

	x *mat.VecDense // state
	p *mat.Dense    // error covariance
}

// NewKalman creates a filter with zero state and zero covariance.
func NewKalman(cfg config.KalmanConfig) *Kalman {
	k := &Kalman{
		f: mat.NewDense(2, 2, []float64{
			1, 1,
			0, 1,
		}),
		h: mat.NewDense(1, 2, []float64{1, 0}),
		q: mat.NewDense(2, 2, []float64{
			cfg.ProcessNoise, 0,
			0, cfg.ProcessNoise,
		}),
		r: cfg.MeasurementNoise,
	}
	k.Reset()
	return k
}

// Reset returns the filter to its initial zero state.
func (k *Kalman) Reset() {
	k.x = mat.NewVecDense(2, nil)
	k.p = mat.NewDense(2, 2, nil)
}

// Update feeds one measurement and returns the predicted position.
func (k *Kalman) Update(z float64) (float64, error) {
	if err := k.Correct(z); err != nil {
		return 0, err
	}
	return k.Predict(), nil
}

// Correct folds measurement z into the state. A non-finite z is rejected
// without touching the state.
func (k *Kalman) Correct(z float64) error {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return ErrInvalidMeasurement
	}

	// S = H P Hᵀ + R
	var hp mat.Dense
	hp.Mul(k.h, k.p)
	var s mat.Dense
	s.Mul(&hp, k.h.T())
	innovCov := s.At(0, 0) + k.r

	// K = P Hᵀ S⁻¹
	var gain mat.Dense
	gain.Mul(k.p, k.h.T())
	gain.Scale(1/innovCov, &gain)

	// x = x + K (z - H x)
	var hx mat.VecDense
	hx.MulVec(k.h, k.x)
	residual := z - hx.AtVec(0)
	k.x.AddScaledVec(k.x, residual, gain.ColView(0))

	// P = P - K H P
	var khp mat.Dense
	khp.Mul(&gain, &hp)
	k.p.Sub(k.p, &khp)

	return nil
}

// Predict advances the state one step and returns the predicted position.
func (k *Kalman) Predict() float64 {
	var x mat.VecDense
	x.MulVec(k.f, k.x)
	k.x = &x

	// P = F P Fᵀ + Q
	var fp, p mat.Dense
	fp.Mul(k.f, k.p)
	p.Mul(&fp, k.f.T())
	p.Add(&p, k.q)
	k.p = &p

	return k.x.AtVec(0)
}

// Position returns the current position estimate.
func (k *Kalman) Position() float64 {
	return k.x.AtVec(0)
}

// Velocity returns the current velocity estimate.
func (k *Kalman) Velocity() float64 {
	return k.x.AtVec(1)
}

// Variance returns the position variance of the current estimate.
func (k *Kalman) Variance() float64 {
	return k.p.At(0, 0)
}
