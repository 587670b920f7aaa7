package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Preview keeps the latest camera frame as JPEG for live viewers. Frames
// are only encoded while at least one viewer is watching.
type Preview struct {
	mu       sync.Mutex
	watchers int
	jpeg     []byte
	seq      uint64
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{}
}

// Watch registers a viewer. The returned func unregisters it.
func (p *Preview) Watch() func() {
	p.mu.Lock()
	p.watchers++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.watchers--
			if p.watchers == 0 {
				p.jpeg = nil
			}
			p.mu.Unlock()
		})
	}
}

// Watching reports whether any viewer is registered.
func (p *Preview) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchers > 0
}

// Publish encodes frame if anyone is watching.
func (p *Preview) Publish(frame *gocv.Mat) {
	if frame == nil || frame.Empty() || !p.Watching() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	p.Store(data)
}

// Store sets the latest encoded frame directly.
func (p *Preview) Store(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jpeg = jpeg
	p.seq++
}

// Latest returns the newest JPEG and its sequence number. The slice must
// not be modified.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}
