package model

// GalleryItem is one cropped plate with its recognized text.
type GalleryItem struct {
	Image string // base64 JPEG
	Text  string
}

// Result is a successful detection response.
type Result struct {
	AnnotatedImage string
	Text           string
	Gallery        []GalleryItem
	Confidence     *float64
}
