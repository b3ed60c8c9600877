package model

import "time"

// Media is an uploaded file staged on disk for the current selection.
type Media struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StoredAt    time.Time `json:"storedAt"`
}
