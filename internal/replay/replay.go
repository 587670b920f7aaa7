// Package replay provides scripted landmark sessions for demos and
// pipeline tests.
package replay

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/abhinaya/internal/detector"
)

//go:embed sessions/*.json
var sessionsFS embed.FS

// Step is one scripted stretch of frames.
type Step struct {
	// Face is one of "frontal", "closed", "turned" or "none".
	Face   string  `json:"face"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Repeat int     `json:"repeat,omitempty"`
}

// Script is a named sequence of steps.
type Script struct {
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// LoadScript loads the script with the given name.
func LoadScript(name string) (*Script, error) {
	data, err := sessionsFS.ReadFile(path.Join("sessions", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}

	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", name, err)
	}
	return &s, nil
}

// LoadSession expands the named script into frames. A nil entry is a
// frame without a face.
func LoadSession(name string) ([]*detector.FaceLandmarks, error) {
	s, err := LoadScript(name)
	if err != nil {
		return nil, err
	}
	return s.Frames()
}

// Frames expands the script.
func (s *Script) Frames() ([]*detector.FaceLandmarks, error) {
	var frames []*detector.FaceLandmarks
	for i, step := range s.Steps {
		n := max(step.Repeat, 1)
		for range n {
			face, err := step.face()
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			frames = append(frames, face)
		}
	}
	return frames, nil
}

func (s Step) face() (*detector.FaceLandmarks, error) {
	switch s.Face {
	case "frontal":
		return detector.FrontalFace(), nil
	case "closed":
		return detector.ClosedEyesFace(), nil
	case "turned":
		return detector.TurnedFace(s.DX, s.DY), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown face %q", s.Face)
	}
}

// Sessions lists the available script names.
func Sessions() []string {
	entries, err := sessionsFS.ReadDir("sessions")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
