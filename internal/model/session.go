package model

import "fmt"

// InputKind identifies which input the session is currently showing.
type InputKind string

const (
	InputNone      InputKind = "none"
	InputImage     InputKind = "image"
	InputVideoFile InputKind = "video-file"
	InputWebcam    InputKind = "webcam"
)

// State is the single session record owned by the service.Manager.
type State struct {
	Version        uint64
	InputKind      InputKind
	Image          *Media
	PreviewSource  string
	Video          *Media
	StreamSource   string
	AnnotatedImage string // base64 JPEG, no data-URI prefix
	RecognizedText string
	Gallery        []GalleryItem
	Confidence     *float64
	Processing     bool
	Resetting      bool
}

// InitialState returns the empty session.
func InitialState() State {
	return State{InputKind: InputNone}
}

// Busy reports whether a request is outstanding or a reset is in progress.
func (s State) Busy() bool {
	return s.Processing || s.Resetting
}

// ControlsDisabled mirrors the input controls being non-interactive.
func (s State) ControlsDisabled() bool {
	return s.Resetting
}

// HasResults reports whether any of the four result fields is set.
func (s State) HasResults() bool {
	return s.AnnotatedImage != "" || s.RecognizedText != "" || len(s.Gallery) > 0 || s.Confidence != nil
}

// Validate checks the source exclusivity invariant.
func (s State) Validate() error {
	if s.PreviewSource != "" && s.StreamSource != "" {
		return fmt.Errorf("both preview source %q and stream source %q are set", s.PreviewSource, s.StreamSource)
	}
	switch s.InputKind {
	case InputNone:
		if s.PreviewSource != "" || s.StreamSource != "" {
			return fmt.Errorf("input kind none with a source set")
		}
	case InputImage:
		if s.Image == nil {
			return fmt.Errorf("input kind image without a selected image")
		}
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with s.
func (s State) Clone() State {
	c := s
	if s.Gallery != nil {
		c.Gallery = append([]GalleryItem(nil), s.Gallery...)
	}
	if s.Confidence != nil {
		v := *s.Confidence
		c.Confidence = &v
	}
	if s.Image != nil {
		m := *s.Image
		c.Image = &m
	}
	if s.Video != nil {
		m := *s.Video
		c.Video = &m
	}
	return c
}
