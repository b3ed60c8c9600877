package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/dto"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/sampler"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/session"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/storage"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/webcam"
)

// Detector is the detection backend: single image submissions plus the
// live webcam stream.
type Detector interface {
	sampler.Detector
	webcam.Source
}

// Broadcaster pushes a message to every connected viewer.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Player plays a staged video file.
type Player interface {
	sampler.Playback
	Run(ctx context.Context)
	Pause()
	Play()
	Close() error
}

// PlayerOpener opens a Player for the file at path.
type PlayerOpener func(path string) (Player, error)

// Manager owns the session and the background tasks of the selected input.
type Manager struct {
	detector   Detector
	uploads    *storage.UploadStore
	hub        Broadcaster
	openPlayer PlayerOpener
	store      *session.Store
	config     *config.Config
	logger     *logger.Logger

	// selectMu serializes input changes and reset completion, which stop
	// and start tasks.
	selectMu sync.Mutex

	taskMu     sync.Mutex
	cancel     context.CancelFunc
	tasks      sync.WaitGroup
	player     Player
	frames     *sampler.Sampler
	mirror     *webcam.Mirror
	resetTimer *time.Timer
}

func NewManager(detector Detector, uploads *storage.UploadStore, hub Broadcaster, openPlayer PlayerOpener, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		detector:   detector,
		uploads:    uploads,
		hub:        hub,
		openPlayer: openPlayer,
		store:      session.NewStore(),
		config:     config,
		logger:     logger,
	}
	manager.store.Subscribe(manager.sendState)

	manager.logger.Info("🎬 Manager started - sampling video every %v", config.SampleInterval())
	return manager
}

// State returns a snapshot of the session.
func (m *Manager) State() model.State {
	return m.store.Snapshot()
}

// View returns the session as rendered for the browser.
func (m *Manager) View() dto.SessionView {
	return dto.NewSessionView(m.store.Snapshot())
}

// ViewMessage is the state message sent to a viewer when it connects.
func (m *Manager) ViewMessage() []byte {
	data, err := m.stateMessage(m.store.Snapshot())
	if err != nil {
		m.logger.Error("Failed to encode state: %v", err)
		return nil
	}
	return data
}

// Media looks up a staged upload.
func (m *Manager) Media(id string) (model.Media, error) {
	return m.uploads.Get(id)
}

// Uploads exposes the upload store for staging new files.
func (m *Manager) Uploads() *storage.UploadStore {
	return m.uploads
}

// SelectImage shows media as the still image to process. Any previous input
// and result is cleared.
func (m *Manager) SelectImage(media model.Media) error {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	prev, err := m.store.SelectImage(media)
	if err != nil {
		m.uploads.Discard(media.ID)
		return err
	}
	m.stopTasks()
	m.release(prev, media.ID)

	m.logger.Info("📷 Image selected: %s", media.Name)
	return nil
}

// SelectVideo starts playing media and sampling its frames.
func (m *Manager) SelectVideo(media model.Media) error {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	if m.store.Resetting() {
		m.uploads.Discard(media.ID)
		return ErrControlsDisabled
	}
	player, err := m.openPlayer(media.Path)
	if err != nil {
		m.uploads.Discard(media.ID)
		return fmt.Errorf("failed to open video %s: %w", media.Name, err)
	}

	prev, err := m.store.SelectVideo(media)
	if err != nil {
		player.Close()
		m.uploads.Discard(media.ID)
		return err
	}
	m.stopTasks()
	m.release(prev, media.ID)

	frames := sampler.New(player, m.detector, m.store, m.config.SampleInterval(), m.config.JPEGQuality, m.logger)
	m.startTasks(player, frames, nil, player.Run, frames.Run)

	m.logger.Info("🎞️ Video selected: %s", media.Name)
	return nil
}

// SelectWebcam switches to the backend's live camera.
func (m *Manager) SelectWebcam() error {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	prev, err := m.store.SelectWebcam()
	if err != nil {
		return err
	}
	m.stopTasks()
	m.release(prev, "")

	mirror := webcam.NewMirror(m.detector, m.config.WebcamCanvasWidth, m.config.WebcamCanvasHeight,
		m.config.SampleInterval(), m.config.JPEGQuality, m.SendToViewers, m.logger)
	m.startTasks(nil, nil, mirror, mirror.Run)

	m.logger.Info("📹 Webcam selected")
	return nil
}

// Process submits the selected still image. On failure viewers are notified,
// the previous results stay visible and the error is returned.
func (m *Manager) Process(ctx context.Context) error {
	media, ticket, err := m.store.BeginProcess()
	if err != nil {
		return err
	}

	result, err := m.detect(ctx, media)
	if err != nil {
		if !m.store.FinishProcess(ticket, nil) {
			m.logger.Warning("Ignoring failed detection of %s: session changed", media.Name)
			return nil
		}
		if errors.Is(err, context.Canceled) {
			m.logger.Warning("Detection of %s cancelled by the client", media.Name)
			return err
		}
		m.logger.Error("Error detecting plates in %s: %v", media.Name, err)
		m.notify("error", "Image processing failed: "+err.Error())
		return err
	}

	if !m.store.FinishProcess(ticket, result) {
		m.logger.Warning("Discarding detection result for %s: session changed", media.Name)
	}
	return nil
}

func (m *Manager) detect(ctx context.Context, media model.Media) (*model.Result, error) {
	file, err := os.Open(media.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", media.Name, err)
	}
	defer file.Close()

	return m.detector.Detect(ctx, file, media.Name)
}

// Reset disables the controls and restores the initial state after the
// configured delay. It reports false when a reset is already pending.
func (m *Manager) Reset() bool {
	if !m.store.BeginReset() {
		return false
	}

	delay := m.config.ResetDelay()
	m.taskMu.Lock()
	m.resetTimer = time.AfterFunc(delay, m.completeReset)
	m.taskMu.Unlock()

	m.logger.Info("🔄 Reset scheduled in %v", delay)
	return true
}

func (m *Manager) completeReset() {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	m.stopTasks()
	prev, ok := m.store.CompleteReset()
	if !ok {
		return
	}
	m.release(prev, "")
	m.logger.Info("🔄 Session reset")
}

// Pause pauses the playing video.
func (m *Manager) Pause() error {
	player := m.CurrentPlayer()
	if player == nil {
		return ErrNoPlayback
	}
	player.Pause()
	return nil
}

// Play resumes the video, restarting it when it has ended.
func (m *Manager) Play() error {
	player := m.CurrentPlayer()
	if player == nil {
		return ErrNoPlayback
	}
	player.Play()
	return nil
}

// CurrentPlayer returns the playing video, or nil outside video mode.
func (m *Manager) CurrentPlayer() Player {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	return m.player
}

// SamplerStats returns the frame sampling counters of the current video.
func (m *Manager) SamplerStats() (sampler.Stats, bool) {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	if m.frames == nil {
		return sampler.Stats{}, false
	}
	return m.frames.Stats(), true
}

// Canvas returns the latest webcam canvas as JPEG.
func (m *Manager) Canvas() ([]byte, error) {
	m.taskMu.Lock()
	mirror := m.mirror
	m.taskMu.Unlock()

	if mirror == nil {
		return nil, ErrNoInput
	}
	canvas, ok := mirror.Canvas()
	if !ok {
		return nil, ErrNoCanvas
	}
	return canvas, nil
}

// SendToViewers pushes a webcam canvas to every viewer.
func (m *Manager) SendToViewers(canvas []byte) {
	msg := dto.Message{
		Type:  dto.MessageWebcam,
		Image: base64.StdEncoding.EncodeToString(canvas),
	}
	m.send(msg)
}

// Stop cancels a pending reset and stops every background task.
func (m *Manager) Stop() {
	m.taskMu.Lock()
	if m.resetTimer != nil {
		m.resetTimer.Stop()
	}
	m.taskMu.Unlock()

	m.selectMu.Lock()
	defer m.selectMu.Unlock()
	m.stopTasks()
	m.logger.Info("🛑 All background tasks stopped")
}

func (m *Manager) startTasks(player Player, frames *sampler.Sampler, mirror *webcam.Mirror, runs ...func(context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())

	m.taskMu.Lock()
	m.cancel = cancel
	m.player = player
	m.frames = frames
	m.mirror = mirror
	m.taskMu.Unlock()

	for _, run := range runs {
		m.tasks.Add(1)
		go func() {
			defer m.tasks.Done()
			run(ctx)
		}()
	}
}

// stopTasks cancels the running tasks and waits for them to return.
func (m *Manager) stopTasks() {
	m.taskMu.Lock()
	cancel, player := m.cancel, m.player
	m.cancel, m.player, m.frames, m.mirror = nil, nil, nil, nil
	m.taskMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.tasks.Wait()

	if player != nil {
		if err := player.Close(); err != nil {
			m.logger.Warning("Error closing video: %v", err)
		}
	}
}

// release discards the uploads prev referenced, except keep.
func (m *Manager) release(prev model.State, keep string) {
	for _, media := range []*model.Media{prev.Image, prev.Video} {
		if media != nil && media.ID != keep {
			m.uploads.Discard(media.ID)
		}
	}
}

func (m *Manager) sendState(s model.State) {
	data, err := m.stateMessage(s)
	if err != nil {
		m.logger.Error("Failed to encode state: %v", err)
		return
	}
	m.hub.Broadcast(data)
}

func (m *Manager) stateMessage(s model.State) ([]byte, error) {
	view := dto.NewSessionView(s)
	return json.Marshal(dto.Message{Type: dto.MessageState, State: &view})
}

func (m *Manager) notify(level, message string) {
	m.send(dto.Message{
		Type:         dto.MessageNotification,
		Notification: &dto.Notification{Level: level, Message: message},
	})
}

func (m *Manager) send(msg dto.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Failed to encode %s message: %v", msg.Type, err)
		return
	}
	m.hub.Broadcast(data)
}
