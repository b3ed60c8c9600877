package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/session"
)

// FrameFilename is the multipart filename used for sampled frames.
const FrameFilename = "frame.jpg"

// Playback is the video surface frames are sampled from.
type Playback interface {
	Paused() bool
	Ended() bool
	// Frame returns the currently visible frame at native resolution.
	Frame() (image.Image, error)
}

// Detector submits one encoded image.
type Detector interface {
	Detect(ctx context.Context, image io.Reader, filename string) (*model.Result, error)
}

// Session is the part of the session store the loop reads and writes.
type Session interface {
	Snapshot() model.State
	Ticket() session.Ticket
	Resetting() bool
	ApplyFrameResult(t session.Ticket, r model.Result) bool
}

// Stats counts what the loop did with each tick.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Submitted uint64 `json:"submitted"`
	Applied   uint64 `json:"applied"`
	Failed    uint64 `json:"failed"`
	Skipped   uint64 `json:"skipped"`
	Aborted   uint64 `json:"aborted"`
}

// Sampler captures the playing video's current frame and submits it for
// detection, keeping at most one submission in flight.
type Sampler struct {
	playback    Playback
	detector    Detector
	session     Session
	interval    time.Duration
	jpegQuality int
	logger      *logger.Logger

	inFlight atomic.Bool
	pending  sync.WaitGroup

	ticks, submitted, applied, failed, skipped, aborted atomic.Uint64
}

func New(playback Playback, detector Detector, sess Session, interval time.Duration, jpegQuality int, logger *logger.Logger) *Sampler {
	return &Sampler{
		playback:    playback,
		detector:    detector,
		session:     sess,
		interval:    interval,
		jpegQuality: jpegQuality,
		logger:      logger,
	}
}

// Run ticks until ctx is cancelled, then waits for the outstanding submission.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("🎞️ Frame sampling started (every %v)", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.pending.Wait()
			st := s.Stats()
			s.logger.Info("🎞️ Frame sampling stopped: %d submitted, %d applied, %d failed", st.Submitted, st.Applied, st.Failed)
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sampling iteration. It reports whether a frame was submitted.
func (s *Sampler) Tick(ctx context.Context) bool {
	s.ticks.Add(1)
	// Taken before the checks so a selection made during capture makes the
	// submission stale.
	ticket := s.session.Ticket()

	if s.playback == nil || s.playback.Paused() || s.playback.Ended() ||
		s.inFlight.Load() || s.session.Snapshot().InputKind != model.InputVideoFile {
		s.skipped.Add(1)
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return false
	}

	data, err := s.capture()
	if err != nil || s.session.Resetting() {
		if err != nil {
			s.logger.Warning("Frame capture skipped: %v", err)
		}
		s.aborted.Add(1)
		s.inFlight.Store(false)
		return false
	}

	s.submitted.Add(1)
	s.pending.Add(1)
	go s.submit(ctx, ticket, data)
	return true
}

// InFlight reports whether a submission is outstanding.
func (s *Sampler) InFlight() bool {
	return s.inFlight.Load()
}

func (s *Sampler) Stats() Stats {
	return Stats{
		Ticks:     s.ticks.Load(),
		Submitted: s.submitted.Load(),
		Applied:   s.applied.Load(),
		Failed:    s.failed.Load(),
		Skipped:   s.skipped.Load(),
		Aborted:   s.aborted.Load(),
	}
}

func (s *Sampler) capture() ([]byte, error) {
	frame, err := s.playback.Frame()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, errors.New("capture frame: empty frame")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(s.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Sampler) submit(ctx context.Context, ticket session.Ticket, data []byte) {
	defer s.pending.Done()
	defer s.inFlight.Store(false)

	result, err := s.detector.Detect(ctx, bytes.NewReader(data), FrameFilename)
	if err != nil {
		s.failed.Add(1)
		if !errors.Is(err, context.Canceled) {
			s.logger.Warning("Video frame detection error: %v", err)
		}
		return
	}
	if s.session.ApplyFrameResult(ticket, *result) {
		s.applied.Add(1)
	}
}
