package cursor

import (
	"fmt"
	"image"
	"math"

	"github.com/go-vgo/robotgo"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/screen"
)

// CaptureFunc grabs a w by h screen region with its top left corner at (x, y).
type CaptureFunc func(x, y, w, h int) (image.Image, error)

// MSER settings tuned for on-screen targets: small glyphs and icons
// qualify, while window-sized background regions are ignored.
const (
	mserDelta        = 4
	mserMinArea      = 15
	mserMaxArea      = 500
	mserMaxVariation = 0.25
	mserMinDiversity = 0.1
)

// Snapper moves a click onto the nearest on-screen target, such as a
// button or an icon, when one lies close to the pointer.
type Snapper struct {
	cfg        config.SnapConfig
	capture    CaptureFunc
	screenSize func() (int, int)
}

// NewSnapper creates a Snapper that captures the screen with robotgo.
func NewSnapper(cfg config.SnapConfig) *Snapper {
	return NewSnapperWithCapture(cfg, robotCapture, ScreenSize)
}

// NewSnapperWithCapture creates a Snapper with a custom screen source.
// A nil screenSize leaves the capture window unclipped on the right and
// bottom.
func NewSnapperWithCapture(cfg config.SnapConfig, capture CaptureFunc, screenSize func() (int, int)) *Snapper {
	return &Snapper{cfg: cfg, capture: capture, screenSize: screenSize}
}

func robotCapture(x, y, w, h int) (image.Image, error) {
	return robotgo.CaptureImg(x, y, w, h)
}

// Snap returns the click position for pointer p. It falls back to p
// when the capture fails or no target is within range.
func (s *Snapper) Snap(p screen.Point) (screen.Point, error) {
	half := s.cfg.Window / 2
	origin := screen.Point{X: max(p.X-half, 0), Y: max(p.Y-half, 0)}

	w, h := s.cfg.Window, s.cfg.Window
	if s.screenSize != nil {
		if sw, sh := s.screenSize(); sw > 0 && sh > 0 {
			w = min(w, sw-origin.X)
			h = min(h, sh-origin.Y)
		}
	}
	if w <= 0 || h <= 0 {
		return p, nil
	}

	img, err := s.capture(origin.X, origin.Y, w, h)
	if err != nil {
		return p, fmt.Errorf("capture screen: %w", err)
	}

	centres, err := Regions(img)
	if err != nil {
		return p, err
	}
	for i := range centres {
		centres[i].X += origin.X
		centres[i].Y += origin.Y
	}

	return SnapToNearest(p, centres, s.cfg.Radius), nil
}

// Regions returns the centres of the stable regions MSER finds in img.
// Text, icons and button outlines all show up as such regions.
func Regions(img image.Image) ([]screen.Point, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert capture: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	mser := gocv.NewMSERWithParams(mserDelta, mserMinArea, mserMaxArea,
		mserMaxVariation, mserMinDiversity, 200, 1.01, 0.003, 5)
	defer mser.Close()

	kps := mser.Detect(gray)
	out := make([]screen.Point, 0, len(kps))
	for _, kp := range kps {
		out = append(out, screen.Point{X: int(kp.X), Y: int(kp.Y)})
	}
	return out, nil
}

// SnapToNearest returns the candidate closest to p if it is strictly
// closer than maxDist, and p otherwise. Distances are truncated to
// whole pixels, so ties go to the earliest candidate.
func SnapToNearest(p screen.Point, candidates []screen.Point, maxDist int) screen.Point {
	best := p
	bestDist := maxDist
	for _, c := range candidates {
		d := int(math.Hypot(float64(p.X-c.X), float64(p.Y-c.Y)))
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
