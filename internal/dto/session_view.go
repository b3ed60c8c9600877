package dto

import (
	"fmt"

	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
)

const jpegDataURIPrefix = "data:image/jpeg;base64,"

// GalleryItemView is a gallery entry ready for an <img> tag.
type GalleryItemView struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// SessionView is the browser-facing rendering of model.State.
type SessionView struct {
	Version          uint64            `json:"version"`
	InputKind        model.InputKind   `json:"inputKind"`
	PreviewSource    string            `json:"previewSource,omitempty"`
	StreamSource     string            `json:"streamSource,omitempty"`
	AnnotatedImage   string            `json:"annotatedImage,omitempty"`
	RecognizedText   string            `json:"recognizedText,omitempty"`
	Gallery          []GalleryItemView `json:"gallery"`
	Confidence       string            `json:"confidence,omitempty"`
	ShowComparison   bool              `json:"showComparison"`
	Busy             bool              `json:"busy"`
	Processing       bool              `json:"processing"`
	Resetting        bool              `json:"resetting"`
	ControlsDisabled bool              `json:"controlsDisabled"`
}

// NewSessionView maps the latest state onto the displayed regions.
func NewSessionView(s model.State) SessionView {
	view := SessionView{
		Version:          s.Version,
		InputKind:        s.InputKind,
		PreviewSource:    s.PreviewSource,
		StreamSource:     s.StreamSource,
		RecognizedText:   s.RecognizedText,
		Gallery:          make([]GalleryItemView, 0, len(s.Gallery)),
		Confidence:       FormatConfidence(s.Confidence),
		Busy:             s.Busy(),
		Processing:       s.Processing,
		Resetting:        s.Resetting,
		ControlsDisabled: s.ControlsDisabled(),
	}
	if s.AnnotatedImage != "" {
		view.AnnotatedImage = jpegDataURIPrefix + s.AnnotatedImage
	}
	for _, g := range s.Gallery {
		view.Gallery = append(view.Gallery, GalleryItemView{
			Image: jpegDataURIPrefix + g.Image,
			Text:  g.Text,
		})
	}
	view.ShowComparison = view.PreviewSource != "" && view.AnnotatedImage != ""
	return view
}

// FormatConfidence renders a 0-100 score with two decimals and a percent sign.
// A nil score renders as the empty string.
func FormatConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *c)
}
