package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultTracking(t *testing.T) {
	tr := DefaultTracking()

	if tr.Pose.ForwardRatio != 0.5 || tr.Pose.MaxAngle != 45 || tr.Pose.XOffset != 40 {
		t.Errorf("unexpected pose defaults: %+v", tr.Pose)
	}
	if tr.Kalman.ProcessNoise != 0.03 || tr.Kalman.MeasurementNoise != 1 {
		t.Errorf("unexpected kalman defaults: %+v", tr.Kalman)
	}
	if tr.Blink.EARThreshold != 0.2 || tr.Blink.MinClosedFrames != 5 {
		t.Errorf("unexpected blink defaults: %+v", tr.Blink)
	}
	s := tr.Smoothing
	if s.FactorHigh != 0.3 || s.FactorLow != 0.06 || s.MovementThreshold != 0.7 ||
		s.MovementThreshold2 != 0.3 || s.LowMovementDuration != 0.2 || s.AxisLockThreshold != 3 {
		t.Errorf("unexpected smoothing defaults: %+v", s)
	}
	sc := tr.Screen
	if sc.Width != 1920 || sc.Height != 1080 || sc.XAngleMin != -30 || sc.XAngleMax != 30 ||
		sc.YAngleMin != -20 || sc.YAngleMax != 20 || !sc.Clamp {
		t.Errorf("unexpected screen defaults: %+v", sc)
	}

	if err := tr.Validate(); err != nil {
		t.Errorf("default tracking should validate, got %v", err)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestSmoothingConfig_LowMovementWindow(t *testing.T) {
	s := SmoothingConfig{LowMovementDuration: 0.2}
	if got := s.LowMovementWindow(); got != 200*time.Millisecond {
		t.Errorf("LowMovementWindow() = %v, want 200ms", got)
	}
}

func TestTracking_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tracking)
	}{
		{"zero max angle", func(tr *Tracking) { tr.Pose.MaxAngle = 0 }},
		{"zero process noise", func(tr *Tracking) { tr.Kalman.ProcessNoise = 0 }},
		{"negative measurement noise", func(tr *Tracking) { tr.Kalman.MeasurementNoise = -1 }},
		{"zero ear threshold", func(tr *Tracking) { tr.Blink.EARThreshold = 0 }},
		{"zero closed frames", func(tr *Tracking) { tr.Blink.MinClosedFrames = 0 }},
		{"factor above one", func(tr *Tracking) { tr.Smoothing.FactorHigh = 1.5 }},
		{"zero low factor", func(tr *Tracking) { tr.Smoothing.FactorLow = 0 }},
		{"zero movement threshold", func(tr *Tracking) { tr.Smoothing.MovementThreshold = 0 }},
		{"negative duration", func(tr *Tracking) { tr.Smoothing.LowMovementDuration = -0.1 }},
		{"zero axis lock", func(tr *Tracking) { tr.Smoothing.AxisLockThreshold = 0 }},
		{"negative width", func(tr *Tracking) { tr.Screen.Width = -1 }},
		{"empty x range", func(tr *Tracking) { tr.Screen.XAngleMax = tr.Screen.XAngleMin }},
		{"inverted y range", func(tr *Tracking) { tr.Screen.YAngleMin, tr.Screen.YAngleMax = 20, -20 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := DefaultTracking()
			tt.mutate(&tr)

			err := tr.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	t.Run("zero screen size means auto", func(t *testing.T) {
		tr := DefaultTracking()
		tr.Screen.Width, tr.Screen.Height = 0, 0
		if err := tr.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestLoad_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracking.Blink.MinClosedFrames != 5 {
		t.Errorf("MinClosedFrames = %d, want default 5", cfg.Tracking.Blink.MinClosedFrames)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults should have been written to %s: %v", path, err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[tracking.blink]
ear_threshold = 0.25
min_closed_frames = 3

[tracking.screen]
width = 2560
height = 1440
x_angle_min = -30.0
x_angle_max = 30.0
y_angle_min = -20.0
y_angle_max = 20.0
x_sensitivity = 1.0
y_sensitivity = 1.0
clamp = false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tracking.Blink.EARThreshold != 0.25 || cfg.Tracking.Blink.MinClosedFrames != 3 {
		t.Errorf("blink = %+v, want threshold 0.25 and 3 frames", cfg.Tracking.Blink)
	}
	if cfg.Tracking.Screen.Width != 2560 || cfg.Tracking.Screen.Clamp {
		t.Errorf("screen = %+v, want width 2560 and no clamp", cfg.Tracking.Screen)
	}
	// Untouched sections keep their defaults.
	if cfg.Tracking.Smoothing.FactorHigh != 0.3 {
		t.Errorf("FactorHigh = %f, want default 0.3", cfg.Tracking.Smoothing.FactorHigh)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[tracking.blink]\nmin_closed_frames = 0\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_RejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tracking\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Tracking.Smoothing.AxisLockThreshold = 4
	cfg.Camera.IdleTimeout = 3 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tracking.Smoothing.AxisLockThreshold != 4 {
		t.Errorf("AxisLockThreshold = %f, want 4", loaded.Tracking.Smoothing.AxisLockThreshold)
	}
	if loaded.Camera.IdleTimeout != 3*time.Second {
		t.Errorf("IdleTimeout = %v, want 3s", loaded.Camera.IdleTimeout)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watcher test in short mode")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Tracking.Blink.MinClosedFrames = 7
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	select {
	case got := <-reloaded:
		if got.Tracking.Blink.MinClosedFrames != 7 {
			t.Errorf("MinClosedFrames = %d, want 7", got.Tracking.Blink.MinClosedFrames)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestWatch_IgnoresMovedAwayFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.Rename(path, filepath.Join(dir, "config.toml.bak")); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("moved-away file triggered a reload: %+v", cfg.Tracking)
	case <-time.After(reloadDebounce + 500*time.Millisecond):
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("defaults were written back to %s (stat error %v)", path, err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
