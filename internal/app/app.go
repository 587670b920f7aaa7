// Package app runs the head-pointer pipeline: it pulls landmark frames,
// feeds them through the tracker and drives the cursor.
package app

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/cursor"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/filter"
	"github.com/ayusman/abhinaya/internal/log"
	"github.com/ayusman/abhinaya/internal/screen"
	"github.com/ayusman/abhinaya/internal/tracker"
)

// Fallback screen size used when neither the config nor the display
// report one.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

// Event is one processed frame as seen by observers. Click is set when
// the frame completed a double blink, and holds the clicked position
// after snapping.
type Event struct {
	tracker.Output
	Click *screen.Point `json:"click,omitempty"`
}

// Publisher receives pipeline events.
type Publisher interface {
	Publish(ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev Event)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Snapper adjusts a click position before it is sent.
type Snapper interface {
	Snap(p screen.Point) (screen.Point, error)
}

// Config holds the collaborators of an App.
type Config struct {
	Session  *Session
	Provider LandmarkProvider
	Sink     cursor.Sink
	Camera   config.CameraConfig

	// Optional.
	Snapper    Snapper
	Publishers []Publisher
	ScreenSize func() (int, int)
	Now        func() time.Time
}

// App owns the tracker and the pipeline goroutine.
type App struct {
	config Config

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}

	// Pipeline goroutine state.
	tracker  *tracker.Tracker
	revision uint64
}

// New creates an App. Session, Provider and Sink are required.
func New(config Config) *App {
	return &App{config: config}
}

// Session returns the session the App reads from.
func (a *App) Session() *Session {
	return a.config.Session
}

// Start opens the provider, if it needs opening, and starts the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if o, ok := a.config.Provider.(interface{ Open() error }); ok {
		if err := o.Open(); err != nil {
			return err
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Info("pipeline started")
	return nil
}

// Stop halts the pipeline and closes the provider.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
	a.doneCh = nil

	if c, ok := a.config.Provider.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("close provider", "error", err)
		}
	}

	log.Info("pipeline stopped")
}

// Running reports whether the pipeline goroutine is running.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// Step runs one pipeline tick. It reports ok=false when tracking is
// disabled or the frame had no face. Step must not be called while the
// pipeline goroutine is running.
func (a *App) Step() (ev Event, ok bool, err error) {
	snap := a.config.Session.Snapshot()
	if !snap.Enabled {
		return Event{}, false, nil
	}
	if a.tracker == nil || snap.Revision != a.revision {
		a.rebuild(snap)
	}

	face, err := a.config.Provider.NextFrame()
	if err != nil {
		return Event{}, false, err
	}

	out, ok, err := a.tracker.Process(face)
	if err != nil || !ok {
		return Event{}, false, err
	}

	ev = Event{Output: out}
	a.config.Sink.MoveTo(out.Point.X, out.Point.Y)

	if out.Blinked {
		click := out.Point
		if a.config.Snapper != nil {
			snapped, err := a.config.Snapper.Snap(click)
			if err != nil {
				log.Debug("snap click", "error", err)
			} else if snapped != click {
				click = snapped
				a.config.Sink.MoveTo(click.X, click.Y)
			}
		}
		a.config.Sink.ClickLeft()
		ev.Click = &click
		log.Info("double blink", "x", click.X, "y", click.Y)
	}

	a.config.Session.Record(ev)
	for _, p := range a.config.Publishers {
		p.Publish(ev)
	}
	return ev, true, nil
}

// rebuild starts a fresh tracker for the session's current tunables.
func (a *App) rebuild(snap Snapshot) {
	tracking := snap.Tracking
	tracking.Screen.Width, tracking.Screen.Height = a.screenSize(tracking.Screen)

	var opts []filter.Option
	if a.config.Now != nil {
		opts = append(opts, filter.WithClock(a.config.Now))
	}
	a.tracker = tracker.New(tracking, opts...)
	a.revision = snap.Revision

	log.Debug("tracker rebuilt", "revision", snap.Revision,
		"width", tracking.Screen.Width, "height", tracking.Screen.Height)
}

// screenSize resolves a zero configured size from the display.
func (a *App) screenSize(cfg config.ScreenConfig) (int, int) {
	if cfg.Width > 0 && cfg.Height > 0 {
		return cfg.Width, cfg.Height
	}
	if a.config.ScreenSize != nil {
		if w, h := a.config.ScreenSize(); w > 0 && h > 0 {
			return w, h
		}
	}
	return fallbackWidth, fallbackHeight
}

// isFrameError reports whether err only affects the current frame.
func isFrameError(err error) bool {
	return errors.Is(err, tracker.ErrDegenerateGeometry) ||
		errors.Is(err, tracker.ErrInvalidMeasurement) ||
		errors.Is(err, detector.ErrMissingLandmark)
}
