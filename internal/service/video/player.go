// Package video plays an uploaded video file with OpenCV so that its
// currently visible frame can be sampled and streamed.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
)

const defaultFPS = 25.0

var ErrNoFrame = errors.New("no frame decoded yet")

// Player decodes a video file at its native frame rate. Playback starts
// immediately (autoplay) and stops at the last frame until Play rewinds it.
type Player struct {
	path    string
	capture *gocv.VideoCapture
	fps     float64
	logger  *logger.Logger

	mu      sync.Mutex
	current gocv.Mat
	hasCur  bool
	frameNo int
	paused  bool
	ended   bool
	rewind  bool
	closed  bool
}

// Open prepares path for playback and decodes its first frame.
func Open(path string, logger *logger.Logger) (*Player, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || fps > 240 {
		fps = defaultFPS
	}

	p := &Player{
		path:    path,
		capture: capture,
		fps:     fps,
		logger:  logger,
		current: gocv.NewMat(),
	}
	if !p.advance() {
		p.Close()
		return nil, fmt.Errorf("video %s has no decodable frames", path)
	}

	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))
	logger.Info("🎬 Opened video %s (%dx%d @ %.2f fps)", path, width, height, fps)
	return p, nil
}

// Run advances playback one frame per frame interval until ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / p.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			idle := p.paused || p.ended || p.closed
			p.mu.Unlock()
			if idle {
				continue
			}
			if !p.advance() {
				p.logger.Info("🎬 Video %s ended after %d frames", p.path, p.frameNo)
			}
		}
	}
}

// advance decodes the next frame into current. It reports false at the end.
func (p *Player) advance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if p.rewind {
		p.capture.Set(gocv.VideoCapturePosFrames, 0)
		p.frameNo = 0
		p.rewind = false
	}

	next := gocv.NewMat()
	if ok := p.capture.Read(&next); !ok || next.Empty() {
		next.Close()
		p.ended = true
		return false
	}
	p.current.Close()
	p.current = next
	p.hasCur = true
	p.frameNo++
	return true
}

// Frame returns the visible frame at native resolution.
func (p *Player) Frame() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.hasCur || p.current.Empty() {
		return nil, ErrNoFrame
	}
	img, err := p.current.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame %d: %w", p.frameNo, err)
	}
	return img, nil
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Play resumes playback; an ended video restarts from the first frame.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	if p.ended {
		p.ended = false
		p.rewind = true
	}
}

// Close releases the decoder. It is safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.current.Close()
	return p.capture.Close()
}
