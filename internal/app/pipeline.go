package app

import (
	"errors"
	"time"

	"github.com/ayusman/abhinaya/internal/log"
)

// activeHinter is implemented by providers that slow down while idle.
type activeHinter interface {
	Active() bool
}

// runPipeline ticks Step at the idle or active rate until stopCh closes.
//
// Providers without an idle mode always run at the active rate. A
// disabled session skips ticks without reading frames. Per-frame errors
// are logged at debug level; provider errors at warn level, rate limited
// to one per second so a missing camera does not flood the log.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	idle := interval(a.config.Camera.IdleFPS)
	active := interval(a.config.Camera.ActiveFPS)

	current := active
	if _, ok := a.config.Provider.(activeHinter); ok {
		current = idle
	}

	ticker := time.NewTicker(current)
	defer ticker.Stop()

	var lastWarn time.Time

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		_, _, err := a.Step()
		switch {
		case err == nil:
		case errors.Is(err, ErrReplayDone):
			log.Info("replay finished")
			return
		case isFrameError(err):
			log.Debug("frame skipped", "error", err)
		default:
			if time.Since(lastWarn) > time.Second {
				log.Warn("read frame", "error", err)
				lastWarn = time.Now()
			}
		}

		want := active
		if h, ok := a.config.Provider.(activeHinter); ok && !h.Active() {
			want = idle
		}
		if want != current {
			current = want
			ticker.Reset(current)
			log.Debug("frame rate changed", "interval", current)
		}
	}
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
