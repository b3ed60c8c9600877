package dto

import "github.com/t0m4t0ww/license-plate-recognition/internal/model"

// GalleryEntry is one plate crop in the /detect response.
type GalleryEntry struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// DetectResponse is the JSON body returned by the detection backend.
type DetectResponse struct {
	AnnotatedImage string         `json:"annotated_image"`
	Text           string         `json:"text"`
	Gallery        []GalleryEntry `json:"gallery"`
	Confidence     *float64       `json:"confidence"`
}

// ErrorResponse is the error body used by the backend and by this service.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResult converts the wire payload, keeping gallery order.
func (r DetectResponse) ToResult() *model.Result {
	gallery := make([]model.GalleryItem, 0, len(r.Gallery))
	for _, g := range r.Gallery {
		gallery = append(gallery, model.GalleryItem{Image: g.Image, Text: g.Text})
	}
	return &model.Result{
		AnnotatedImage: r.AnnotatedImage,
		Text:           r.Text,
		Gallery:        gallery,
		Confidence:     r.Confidence,
	}
}
