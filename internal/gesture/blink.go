package gesture

import "github.com/ayusman/abhinaya/internal/config"

// BlinkState is a snapshot of the blink detector's counters.
type BlinkState struct {
	ClosedFrames int `json:"closed_frames"`
	Qualified    int `json:"qualified"`
}

// BlinkDetector recognizes a double blink: two eye closures that each
// last at least MinClosedFrames frames. Only frame counts matter; any
// number of open frames may separate the two closures.
//
// A BlinkDetector is not safe for concurrent use.
type BlinkDetector struct {
	cfg   config.BlinkConfig
	state BlinkState

	// OnDoubleBlink is called, if set, whenever a double blink completes.
	OnDoubleBlink func()
}

// NewBlinkDetector creates a BlinkDetector with zeroed counters.
func NewBlinkDetector(cfg config.BlinkConfig) *BlinkDetector {
	return &BlinkDetector{cfg: cfg}
}

// Update feeds one frame's eye aspect ratio and reports whether it
// completed a double blink.
func (b *BlinkDetector) Update(ear float64) bool {
	if ear < b.cfg.EARThreshold {
		b.state.ClosedFrames++
		return false
	}

	fired := false
	if b.state.ClosedFrames >= b.cfg.MinClosedFrames {
		b.state.Qualified++
		if b.state.Qualified == 2 {
			b.state.Qualified = 0
			fired = true
		}
	}
	b.state.ClosedFrames = 0

	if fired && b.OnDoubleBlink != nil {
		b.OnDoubleBlink()
	}
	return fired
}

// State returns the current counters.
func (b *BlinkDetector) State() BlinkState {
	return b.state
}

// Reset clears both counters.
func (b *BlinkDetector) Reset() {
	b.state = BlinkState{}
}
