// Package config loads and validates abhinaya settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every setting of the application.
type Config struct {
	Camera   CameraConfig   `toml:"camera"`
	Detector DetectorConfig `toml:"detector"`
	Tracking Tracking       `toml:"tracking"`
	Snap     SnapConfig     `toml:"snap"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// CameraConfig configures frame acquisition and idle/active switching.
type CameraConfig struct {
	Device          int           `toml:"device"`
	Width           int           `toml:"width"`
	Height          int           `toml:"height"`
	IdleFPS         int           `toml:"idle_fps"`
	ActiveFPS       int           `toml:"active_fps"`
	MotionThreshold float64       `toml:"motion_threshold"` // percent of changed pixels
	IdleTimeout     time.Duration `toml:"idle_timeout"`
}

// DetectorConfig configures the face landmark model.
type DetectorConfig struct {
	MaxFaces        int     `toml:"max_faces"`
	MinConfidence   float64 `toml:"min_confidence"`
	MinTrackingConf float64 `toml:"min_tracking_confidence"`
	RefineLandmarks bool    `toml:"refine_landmarks"`
}

// Tracking groups the tunables of the per-frame pointer pipeline.
// It is also the unit stored in profiles, hence the JSON tags.
type Tracking struct {
	Pose      PoseConfig      `toml:"pose" json:"pose"`
	Kalman    KalmanConfig    `toml:"kalman" json:"kalman"`
	Blink     BlinkConfig     `toml:"blink" json:"blink"`
	Smoothing SmoothingConfig `toml:"smoothing" json:"smoothing"`
	Screen    ScreenConfig    `toml:"screen" json:"screen"`
}

// PoseConfig configures raw head angle estimation.
type PoseConfig struct {
	ForwardRatio float64 `toml:"forward_ratio" json:"forward_ratio"`
	MaxAngle     float64 `toml:"max_angle" json:"max_angle"`
	XOffset      float64 `toml:"x_offset" json:"x_offset"`
}

// KalmanConfig configures the per-axis Kalman filters.
type KalmanConfig struct {
	ProcessNoise     float64 `toml:"process_noise" json:"process_noise"`
	MeasurementNoise float64 `toml:"measurement_noise" json:"measurement_noise"`
}

// BlinkConfig configures double-blink detection.
type BlinkConfig struct {
	EARThreshold    float64 `toml:"ear_threshold" json:"ear_threshold"`
	MinClosedFrames int     `toml:"min_closed_frames" json:"min_closed_frames"`
}

// SmoothingConfig configures the adaptive motion smoother.
type SmoothingConfig struct {
	FactorHigh          float64 `toml:"factor_high" json:"factor_high"`
	FactorLow           float64 `toml:"factor_low" json:"factor_low"`
	MovementThreshold   float64 `toml:"movement_threshold" json:"movement_threshold"`
	MovementThreshold2  float64 `toml:"movement_threshold2" json:"movement_threshold2"`
	LowMovementDuration float64 `toml:"low_movement_duration" json:"low_movement_duration"` // seconds
	AxisLockThreshold   float64 `toml:"axis_lock_threshold" json:"axis_lock_threshold"`
}

// ScreenConfig configures the angle to pixel mapping.
// A zero Width or Height means the size is taken from the display.
type ScreenConfig struct {
	Width        int     `toml:"width" json:"width"`
	Height       int     `toml:"height" json:"height"`
	XAngleMin    float64 `toml:"x_angle_min" json:"x_angle_min"`
	XAngleMax    float64 `toml:"x_angle_max" json:"x_angle_max"`
	YAngleMin    float64 `toml:"y_angle_min" json:"y_angle_min"`
	YAngleMax    float64 `toml:"y_angle_max" json:"y_angle_max"`
	XSensitivity float64 `toml:"x_sensitivity" json:"x_sensitivity"`
	YSensitivity float64 `toml:"y_sensitivity" json:"y_sensitivity"`
	Clamp        bool    `toml:"clamp" json:"clamp"`
}

// SnapConfig configures click snapping to nearby on-screen regions.
type SnapConfig struct {
	Enabled bool `toml:"enabled"`
	Radius  int  `toml:"radius"`
	Window  int  `toml:"window"`
}

// ServerConfig configures the local HTTP server.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultTracking returns the stock pipeline tunables.
func DefaultTracking() Tracking {
	return Tracking{
		Pose: PoseConfig{
			ForwardRatio: 0.5,
			MaxAngle:     45,
			XOffset:      40,
		},
		Kalman: KalmanConfig{
			ProcessNoise:     0.03,
			MeasurementNoise: 1,
		},
		Blink: BlinkConfig{
			EARThreshold:    0.2,
			MinClosedFrames: 5,
		},
		Smoothing: SmoothingConfig{
			FactorHigh:          0.3,
			FactorLow:           0.06,
			MovementThreshold:   0.7,
			MovementThreshold2:  0.3,
			LowMovementDuration: 0.2,
			AxisLockThreshold:   3,
		},
		Screen: ScreenConfig{
			Width:        1920,
			Height:       1080,
			XAngleMin:    -30,
			XAngleMax:    30,
			YAngleMin:    -20,
			YAngleMax:    20,
			XSensitivity: 1.5,
			YSensitivity: 2,
			Clamp:        true,
		},
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:          0,
			Width:           640,
			Height:          480,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeout:     2 * time.Second,
		},
		Detector: DetectorConfig{
			MaxFaces:        1,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
			RefineLandmarks: true,
		},
		Tracking: DefaultTracking(),
		Snap: SnapConfig{
			Enabled: false,
			Radius:  100,
			Window:  200,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "abhinaya", "config.toml"), nil
}

// Load reads the config file at path. When the file does not exist the
// defaults are written there and returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes cfg to path as TOML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		return fmt.Errorf("%w: camera fps must be positive", ErrInvalidConfig)
	}
	if c.Camera.IdleTimeout <= 0 {
		return fmt.Errorf("%w: camera idle_timeout must be positive", ErrInvalidConfig)
	}
	if c.Snap.Enabled && (c.Snap.Radius <= 0 || c.Snap.Window <= 0) {
		return fmt.Errorf("%w: snap radius and window must be positive", ErrInvalidConfig)
	}
	return c.Tracking.Validate()
}

// Validate checks the pipeline tunables.
func (t Tracking) Validate() error {
	switch {
	case t.Pose.MaxAngle <= 0:
		return fmt.Errorf("%w: pose max_angle must be positive", ErrInvalidConfig)
	case t.Kalman.ProcessNoise <= 0:
		return fmt.Errorf("%w: kalman process_noise must be positive", ErrInvalidConfig)
	case t.Kalman.MeasurementNoise <= 0:
		return fmt.Errorf("%w: kalman measurement_noise must be positive", ErrInvalidConfig)
	case t.Blink.EARThreshold <= 0:
		return fmt.Errorf("%w: blink ear_threshold must be positive", ErrInvalidConfig)
	case t.Blink.MinClosedFrames < 1:
		return fmt.Errorf("%w: blink min_closed_frames must be at least 1", ErrInvalidConfig)
	case !inUnit(t.Smoothing.FactorHigh) || !inUnit(t.Smoothing.FactorLow):
		return fmt.Errorf("%w: smoothing factors must be in (0, 1]", ErrInvalidConfig)
	case t.Smoothing.MovementThreshold <= 0 || t.Smoothing.MovementThreshold2 < 0:
		return fmt.Errorf("%w: smoothing movement thresholds must be positive", ErrInvalidConfig)
	case t.Smoothing.LowMovementDuration < 0:
		return fmt.Errorf("%w: smoothing low_movement_duration must not be negative", ErrInvalidConfig)
	case t.Smoothing.AxisLockThreshold <= 0:
		return fmt.Errorf("%w: smoothing axis_lock_threshold must be positive", ErrInvalidConfig)
	case t.Screen.Width < 0 || t.Screen.Height < 0:
		return fmt.Errorf("%w: screen size must not be negative", ErrInvalidConfig)
	case t.Screen.XAngleMax <= t.Screen.XAngleMin:
		return fmt.Errorf("%w: screen x angle range is empty", ErrInvalidConfig)
	case t.Screen.YAngleMax <= t.Screen.YAngleMin:
		return fmt.Errorf("%w: screen y angle range is empty", ErrInvalidConfig)
	}
	return nil
}

// LowMovementWindow returns the low movement duration as a time.Duration.
func (s SmoothingConfig) LowMovementWindow() time.Duration {
	return time.Duration(s.LowMovementDuration * float64(time.Second))
}

func inUnit(v float64) bool {
	return v > 0 && v <= 1
}
