package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// serviceScript is the face mesh helper shipped in scripts/.
const serviceScript = "face_mesh_service.py"

// idleShutdown is how long the helper process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// ErrServiceNotFound is returned when the face mesh helper script cannot be located.
var ErrServiceNotFound = errors.New("face mesh service script not found")

// MediaPipeDetector implements Detector by talking to a Python MediaPipe
// face mesh subprocess. Each request is a 4-byte big-endian length followed
// by a JPEG frame; each response is one JSON line.
type MediaPipeDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer

	// python overrides the interpreter lookup.
	python string
}

// NewMediaPipeDetector creates a new MediaPipe face detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := findServiceScript()
	if script == "" {
		return nil, ErrServiceNotFound
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
	}, nil
}

// Detect sends frame to the helper and returns the first reported face.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := d.stdin.Write(header[:]); err != nil {
		return nil, d.fail(fmt.Errorf("write length: %w", err))
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, d.fail(fmt.Errorf("write frame: %w", err))
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, d.fail(fmt.Errorf("read response: %w", err))
	}

	face, err := decodeResponse(line, frame.Cols(), frame.Rows())
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()
	return face, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := d.python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script, d.args()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start face mesh service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

// args passes the model options to the helper on its command line.
func (d *MediaPipeDetector) args() []string {
	args := []string{
		"--max-faces", strconv.Itoa(d.config.MaxFaces),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
	if d.config.RefineLandmarks {
		args = append(args, "--refine-landmarks")
	}
	return args
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// fail stops a helper whose pipes broke so the next Detect starts a new
// one. It returns err.
func (d *MediaPipeDetector) fail(err error) error {
	d.shutdown()
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// jsonResponse is the line the helper writes for every frame.
type jsonResponse struct {
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

type jsonFace struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// decodeResponse parses one helper line. The first face wins; an empty
// face list means nothing was detected.
func decodeResponse(line []byte, width, height int) (*FaceLandmarks, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", resp.Error)
	}
	if len(resp.Faces) == 0 {
		return nil, nil
	}

	f := resp.Faces[0]
	if len(f.Points) < NumLandmarks {
		return nil, fmt.Errorf("%w: got %d points, want at least %d", ErrMissingLandmark, len(f.Points), NumLandmarks)
	}

	return &FaceLandmarks{
		Points: f.Points,
		Width:  width,
		Height: height,
		Score:  f.Score,
	}, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".abhinaya", "scripts", serviceScript),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory, the executable, or ~/.abhinaya.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
