package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func sampleResult(text string) model.Result {
	return model.Result{
		AnnotatedImage: "QUJD",
		Text:           text,
		Gallery:        []model.GalleryItem{{Image: "MQ==", Text: text}},
		Confidence:     floatPtr(97.3),
	}
}

func assertNoResults(t *testing.T, s model.State) {
	t.Helper()
	if s.HasResults() {
		t.Errorf("Expected results cleared, got annotated=%q text=%q gallery=%d confidence=%v",
			s.AnnotatedImage, s.RecognizedText, len(s.Gallery), s.Confidence)
	}
}

func assertInitial(t *testing.T, s model.State) {
	t.Helper()
	want := model.InitialState()
	s.Version = 0
	if s.InputKind != want.InputKind || s.Image != nil || s.Video != nil ||
		s.PreviewSource != "" || s.StreamSource != "" || s.Processing || s.Resetting {
		t.Errorf("Expected initial state, got %+v", s)
	}
	assertNoResults(t, s)
}

func TestSelectionClearsOtherSourceAndResults(t *testing.T) {
	store := NewStore()

	if _, err := store.SelectVideo(model.Media{ID: "v1"}); err != nil {
		t.Fatalf("SelectVideo failed: %v", err)
	}
	store.ApplyFrameResult(store.Ticket(), sampleResult("A"))

	if _, err := store.SelectImage(model.Media{ID: "i1"}); err != nil {
		t.Fatalf("SelectImage failed: %v", err)
	}
	s := store.Snapshot()
	if s.StreamSource != "" || s.Video != nil {
		t.Errorf("Image selection must clear the stream, got %q", s.StreamSource)
	}
	if s.PreviewSource != "/api/media/i1" {
		t.Errorf("Unexpected preview %q", s.PreviewSource)
	}
	assertNoResults(t, s)
	if err := s.Validate(); err != nil {
		t.Error(err)
	}

	media, ticket, err := store.BeginProcess()
	if err != nil || media.ID != "i1" {
		t.Fatalf("BeginProcess failed: %v", err)
	}
	r := sampleResult("B")
	store.FinishProcess(ticket, &r)

	if _, err := store.SelectWebcam(); err != nil {
		t.Fatalf("SelectWebcam failed: %v", err)
	}
	s = store.Snapshot()
	if s.PreviewSource != "" || s.Image != nil {
		t.Errorf("Webcam selection must clear the preview, got %q", s.PreviewSource)
	}
	if s.StreamSource != WebcamSource || s.InputKind != model.InputWebcam {
		t.Errorf("Unexpected webcam state %+v", s)
	}
	assertNoResults(t, s)
}

func TestBeginProcess_Preconditions(t *testing.T) {
	store := NewStore()

	if _, _, err := store.BeginProcess(); !errors.Is(err, ErrNoInput) {
		t.Errorf("Expected ErrNoInput without an image, got %v", err)
	}

	store.SelectVideo(model.Media{ID: "v"})
	if _, _, err := store.BeginProcess(); !errors.Is(err, ErrNoInput) {
		t.Errorf("Expected ErrNoInput in video mode, got %v", err)
	}

	store.SelectImage(model.Media{ID: "i"})
	if _, _, err := store.BeginProcess(); err != nil {
		t.Fatalf("BeginProcess failed: %v", err)
	}
	if !store.Snapshot().Busy() {
		t.Error("Expected busy while processing")
	}
	if _, _, err := store.BeginProcess(); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for overlapping process, got %v", err)
	}
	if _, err := store.SelectWebcam(); !errors.Is(err, ErrBusy) {
		t.Errorf("Webcam should be rejected while processing, got %v", err)
	}
}

func TestFinishProcess_SuccessAndFailure(t *testing.T) {
	store := NewStore()
	store.SelectImage(model.Media{ID: "i"})

	_, ticket, _ := store.BeginProcess()
	r := sampleResult("51F-123.45")
	if !store.FinishProcess(ticket, &r) {
		t.Fatal("Expected result to be applied")
	}
	s := store.Snapshot()
	if s.Busy() || s.RecognizedText != "51F-123.45" || *s.Confidence != 97.3 {
		t.Errorf("Unexpected state after success %+v", s)
	}

	_, ticket, _ = store.BeginProcess()
	if !store.FinishProcess(ticket, nil) {
		t.Fatal("Expected failure to be applied")
	}
	s = store.Snapshot()
	if s.Busy() {
		t.Error("Busy must return to false after failure")
	}
	if s.RecognizedText != "51F-123.45" || len(s.Gallery) != 1 {
		t.Errorf("Prior results must remain after failure, got %+v", s)
	}
}

func TestReset_SuppressesLateResponses(t *testing.T) {
	store := NewStore()
	store.SelectImage(model.Media{ID: "i"})
	_, ticket, _ := store.BeginProcess()

	if !store.BeginReset() {
		t.Fatal("BeginReset should start a reset")
	}
	if store.BeginReset() {
		t.Error("Second BeginReset should be a no-op")
	}
	s := store.Snapshot()
	if !s.Busy() || !s.ControlsDisabled() {
		t.Error("Controls must be disabled during reset")
	}
	if _, err := store.SelectImage(model.Media{ID: "j"}); !errors.Is(err, ErrControlsDisabled) {
		t.Errorf("Expected ErrControlsDisabled, got %v", err)
	}

	r := sampleResult("late")
	if store.FinishProcess(ticket, &r) {
		t.Error("Response issued before reset must be suppressed")
	}
	if _, ok := store.CompleteReset(); !ok {
		t.Fatal("CompleteReset should apply")
	}
	if store.FinishProcess(ticket, &r) {
		t.Error("Response arriving after reset completion must be suppressed")
	}
	assertInitial(t, store.Snapshot())
}

func TestApplyFrameResult_Guards(t *testing.T) {
	store := NewStore()
	store.SelectVideo(model.Media{ID: "v"})
	ticket := store.Ticket()

	if !store.ApplyFrameResult(ticket, sampleResult("A")) {
		t.Fatal("Expected frame result applied")
	}
	s := store.Snapshot()
	if s.StreamSource != VideoStreamSource {
		t.Error("Frame results must not clear the stream")
	}

	store.SelectVideo(model.Media{ID: "v2"})
	if store.ApplyFrameResult(ticket, sampleResult("old video")) {
		t.Error("Result from the previous video must be suppressed")
	}

	store.BeginReset()
	if store.ApplyFrameResult(store.Ticket(), sampleResult("during reset")) {
		t.Error("Frame results must be suppressed while resetting")
	}
}

func TestListeners_VersionIncreases(t *testing.T) {
	store := NewStore()
	var mu sync.Mutex
	var versions []uint64
	store.Subscribe(func(s model.State) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})

	store.SelectImage(model.Media{ID: "a"})
	store.SelectWebcam()
	store.BeginReset()
	store.CompleteReset()

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 4 {
		t.Fatalf("Expected 4 notifications, got %d", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("Versions not increasing: %v", versions)
		}
	}
}

func TestSnapshot_IsIsolated(t *testing.T) {
	store := NewStore()
	store.SelectVideo(model.Media{ID: "v"})
	store.ApplyFrameResult(store.Ticket(), sampleResult("A"))

	s := store.Snapshot()
	s.Gallery[0].Text = "mutated"
	*s.Confidence = 1

	again := store.Snapshot()
	if again.Gallery[0].Text != "A" || *again.Confidence != 97.3 {
		t.Error("Snapshot mutation leaked into the store")
	}
}
