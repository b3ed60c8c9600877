// Package session owns the single session-state record. Every mutation is a
// named reducer: it takes the current state and returns the next one.
package session

import "github.com/t0m4t0ww/license-plate-recognition/internal/model"

// Browser-facing sources set by the selection reducers.
const (
	MediaPathPrefix   = "/api/media/"
	VideoStreamSource = "/api/video/stream"
	WebcamSource      = "/api/webcam"
)

func clearResults(s model.State) model.State {
	s.AnnotatedImage = ""
	s.RecognizedText = ""
	s.Gallery = nil
	s.Confidence = nil
	return s
}

func clearInputs(s model.State) model.State {
	s.Image = nil
	s.PreviewSource = ""
	s.Video = nil
	s.StreamSource = ""
	return s
}

// SelectImage shows a still image and drops the stream and prior results.
func SelectImage(s model.State, media model.Media) model.State {
	s = clearResults(clearInputs(s))
	s.InputKind = model.InputImage
	s.Image = &media
	s.PreviewSource = MediaPathPrefix + media.ID
	s.Processing = false
	return s
}

// SelectVideo points the stream at the playback of an uploaded file.
func SelectVideo(s model.State, media model.Media) model.State {
	s = clearResults(clearInputs(s))
	s.InputKind = model.InputVideoFile
	s.Video = &media
	s.StreamSource = VideoStreamSource
	s.Processing = false
	return s
}

// SelectWebcam points the stream at the webcam relay.
func SelectWebcam(s model.State) model.State {
	s = clearResults(clearInputs(s))
	s.InputKind = model.InputWebcam
	s.StreamSource = WebcamSource
	s.Processing = false
	return s
}

// BeginProcess marks an on-demand request as outstanding.
func BeginProcess(s model.State) model.State {
	s.Processing = true
	return s
}

// ApplyProcessResult replaces the results and clears any stream source.
func ApplyProcessResult(s model.State, r model.Result) model.State {
	s = applyResult(s, r)
	s.StreamSource = ""
	s.Video = nil
	s.Processing = false
	return s
}

// FailProcess ends the busy state and keeps prior results.
func FailProcess(s model.State) model.State {
	s.Processing = false
	return s
}

// ApplyFrameResult replaces the results from a sampled video frame.
func ApplyFrameResult(s model.State, r model.Result) model.State {
	return applyResult(s, r)
}

// BeginReset disables the controls until CompleteReset.
func BeginReset(s model.State) model.State {
	s.Resetting = true
	s.Processing = false
	return s
}

// CompleteReset returns every field to its initial value.
func CompleteReset(s model.State) model.State {
	return model.InitialState()
}

func applyResult(s model.State, r model.Result) model.State {
	s.AnnotatedImage = r.AnnotatedImage
	s.RecognizedText = r.Text
	s.Gallery = append([]model.GalleryItem(nil), r.Gallery...)
	s.Confidence = nil
	if r.Confidence != nil {
		v := *r.Confidence
		s.Confidence = &v
	}
	return s
}
