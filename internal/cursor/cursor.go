// Package cursor drives the OS pointer.
package cursor

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/abhinaya/internal/screen"
)

// Sink receives pointer moves and clicks.
type Sink interface {
	MoveTo(x, y int)
	ClickLeft()
}

// RobotSink moves the real cursor.
type RobotSink struct{}

// NewRobotSink creates a Sink backed by the OS cursor.
func NewRobotSink() *RobotSink {
	return &RobotSink{}
}

// MoveTo moves the cursor to (x, y) in screen pixels.
func (RobotSink) MoveTo(x, y int) {
	robotgo.Move(x, y)
}

// ClickLeft clicks the left button at the cursor position.
func (RobotSink) ClickLeft() {
	robotgo.Click("left")
}

// ScreenSize returns the main display size in pixels.
func ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// Action is one recorded sink call.
type Action struct {
	Click bool
	Point screen.Point
}

// Recorder is a Sink that remembers every call. Clicks are recorded at
// the position of the last move.
type Recorder struct {
	mu      sync.Mutex
	pos     screen.Point
	actions []Action
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) MoveTo(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = screen.Point{X: x, Y: y}
	r.actions = append(r.actions, Action{Point: r.pos})
}

func (r *Recorder) ClickLeft() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, Action{Click: true, Point: r.pos})
}

// Actions returns a copy of everything recorded so far.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Clicks returns the positions of recorded clicks.
func (r *Recorder) Clicks() []screen.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []screen.Point
	for _, a := range r.actions {
		if a.Click {
			out = append(out, a.Point)
		}
	}
	return out
}

// Position returns the last move target.
func (r *Recorder) Position() screen.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}
