// Package tray provides the system tray menu for abhinaya.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/getlantern/systray"
)

// Toggler is the session state the tray switches.
type Toggler interface {
	Enabled() bool
	Toggle() bool
	OnChange(fn func(app.Snapshot))
}

// Tray is the system tray application. It implements app.Publisher to
// show the last click.
type Tray struct {
	session    Toggler
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	menuToggle    *systray.MenuItem
	menuLastClick *systray.MenuItem
	lastClick     string
	toggle        string
}

// New creates a Tray that switches session. The toggle label follows
// the session whether it is changed from the tray or elsewhere.
func New(session Toggler) *Tray {
	t := &Tray{
		session:   session,
		lastClick: lastLabel(nil),
		toggle:    toggleLabel(session.Enabled()),
	}
	session.OnChange(func(snap app.Snapshot) {
		t.setEnabled(snap.Enabled)
	})
	return t
}

// OnSettings sets the callback for the settings menu item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until systray.Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTitle("Abhinaya")
	systray.SetTooltip("Abhinaya head pointer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(t.toggle, "Pause or resume head tracking")
	systray.AddSeparator()
	t.menuLastClick = systray.AddMenuItem(t.lastClick, "Last blink click")
	t.menuLastClick.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Abhinaya")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle flips tracking and returns the new state. The label is
// updated by the session change callback.
func (t *Tray) handleToggle() bool {
	return t.session.Toggle()
}

func (t *Tray) setEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toggle = toggleLabel(enabled)
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(t.toggle)
	}
}

// ToggleLabel returns the text of the toggle entry.
func (t *Tray) ToggleLabel() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.toggle
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// Publish updates the last click entry when ev carries a click.
func (t *Tray) Publish(ev app.Event) {
	if ev.Click == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastClick = lastLabel(&ev)
	if t.menuLastClick != nil {
		t.menuLastClick.SetTitle(t.lastClick)
	}
}

// LastClick returns the text of the last click entry.
func (t *Tray) LastClick() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastClick
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func lastLabel(ev *app.Event) string {
	if ev == nil || ev.Click == nil {
		return "Last: none"
	}
	return fmt.Sprintf("Last: click at (%d, %d)", ev.Click.X, ev.Click.Y)
}
