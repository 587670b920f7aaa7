package e2e

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/cursor"
	"github.com/ayusman/abhinaya/internal/replay"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/gorilla/websocket"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	app     *app.App
	session *app.Session
	replay  *app.ReplayProvider
	cursor  *cursor.Recorder
	hub     *server.Hub
	store   *store.Store
	ts      *httptest.Server
}

func newHarness(t *testing.T, session string) *harness {
	t.Helper()

	frames, err := replay.LoadSession(session)
	if err != nil {
		t.Fatalf("LoadSession(%s) error = %v", session, err)
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cam := config.DefaultConfig().Camera
	cam.ActiveFPS = 50

	h := &harness{
		session: app.NewSession(config.DefaultTracking(), true),
		replay:  app.NewReplayProvider(frames, false),
		cursor:  cursor.NewRecorder(),
		hub:     server.NewHub(),
		store:   s,
	}
	h.app = app.New(app.Config{
		Session:    h.session,
		Provider:   h.replay,
		Sink:       h.cursor,
		Camera:     cam,
		Publishers: []app.Publisher{h.hub},
		Now:        func() time.Time { return epoch },
	})

	h.ts = httptest.NewServer(server.New(server.Config{
		Store:   s,
		Session: h.session,
		Hub:     h.hub,
	}))
	t.Cleanup(h.ts.Close)

	return h
}

// drain steps the app until the replay ends.
func (h *harness) drain(t *testing.T) []app.Event {
	t.Helper()

	var events []app.Event
	for {
		ev, ok, err := h.app.Step()
		if errors.Is(err, app.ErrReplayDone) {
			return events
		}
		if err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if ok {
			events = append(events, ev)
		}
	}
}

func TestE2E_DoubleBlinkClicks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, "double_blink")
	events := h.drain(t)

	clicks := h.cursor.Clicks()
	if len(clicks) != 1 {
		t.Fatalf("clicks = %v, want exactly one", clicks)
	}

	var clicked []app.Event
	for _, ev := range events {
		if ev.Click != nil {
			clicked = append(clicked, ev)
		}
	}
	if len(clicked) != 1 || *clicked[0].Click != clicks[0] {
		t.Errorf("click events = %+v, cursor clicks = %v", clicked, clicks)
	}
	if clicked[0].Frame != 24 {
		t.Errorf("click on frame %d, want 24", clicked[0].Frame)
	}
}

func TestE2E_ShortBlinksDoNotClick(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, "short_blinks")
	events := h.drain(t)

	if n := len(h.cursor.Clicks()); n != 0 {
		t.Errorf("clicks = %d, want 0", n)
	}
	if len(events) != 18 {
		t.Errorf("events = %d, want 18", len(events))
	}
}

func TestE2E_LookAroundMovesBothWays(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, "look_around")
	events := h.drain(t)

	if len(events) != 45 {
		t.Fatalf("events = %d, want 45 (frames without a face are skipped)", len(events))
	}

	// The camera image is mirrored: a nose shifted right in the frame
	// moves the cursor left on screen.
	afterRight := events[24].Point.X
	afterLeft := events[len(events)-1].Point.X
	if afterLeft <= afterRight {
		t.Errorf("turning back should move the cursor the other way: after right=%d after left=%d", afterRight, afterLeft)
	}
	for _, ev := range events {
		if ev.Point.X < 0 || ev.Point.X >= 1920 || ev.Point.Y < 0 || ev.Point.Y >= 1080 {
			t.Fatalf("point %+v outside the screen", ev.Point)
		}
	}
}

func TestE2E_PauseAndProfileViaAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, "double_blink")
	client := h.ts.Client()

	put := func(body string) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPut, h.ts.URL+"/api/tracking", strings.NewReader(body))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/tracking error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT /api/tracking status = %d", resp.StatusCode)
		}
	}

	t.Run("paused session reads no frames", func(t *testing.T) {
		put(`{"enabled": false}`)
		before := h.replay.Remaining()

		if _, ok, err := h.app.Step(); ok || err != nil {
			t.Fatalf("Step() while paused ok=%v err=%v", ok, err)
		}
		if h.replay.Remaining() != before {
			t.Error("paused step consumed a frame")
		}
		put(`{"enabled": true}`)
	})

	t.Run("activated profile applies to the next frame", func(t *testing.T) {
		unclamped := config.DefaultTracking()
		unclamped.Screen.Clamp = false
		body, _ := json.Marshal(map[string]any{"name": "unclamped", "tracking": unclamped})

		resp, err := client.Post(h.ts.URL+"/api/profiles", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST /api/profiles error = %v", err)
		}
		var p store.Profile
		json.NewDecoder(resp.Body).Decode(&p)
		resp.Body.Close()

		resp, err = client.Post(h.ts.URL+"/api/profiles/"+p.ID+"/activate", "application/json", nil)
		if err != nil {
			t.Fatalf("activate error = %v", err)
		}
		resp.Body.Close()

		ev, ok, err := h.app.Step()
		if err != nil || !ok {
			t.Fatalf("Step() ok=%v err=%v", ok, err)
		}
		// A fresh tracker starts at angle 0, which maps to the bottom edge.
		if ev.Point.Y != 1080 {
			t.Errorf("Y = %d, want 1080 without clamping", ev.Point.Y)
		}
		if ev.Frame != 1 {
			t.Errorf("Frame = %d, want 1 after rebuild", ev.Frame)
		}

		active, err := h.store.ActiveProfile()
		if err != nil || active.ID != p.ID {
			t.Errorf("ActiveProfile() = %v, %v", active, err)
		}
	})
}

func TestE2E_PointerWebSocket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, "double_blink")

	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/api/pointer"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer h.app.Stop()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("no click event received: %v", err)
		}
		var ev app.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Click != nil {
			return
		}
	}
}
