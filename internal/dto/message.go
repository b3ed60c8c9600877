package dto

// Message types pushed to viewers over /api/view.
const (
	MessageState        = "state"
	MessageNotification = "notification"
	MessageWebcam       = "webcam"
)

// Message is the envelope for every websocket push.
type Message struct {
	Type         string        `json:"type"`
	State        *SessionView  `json:"state,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Image        string        `json:"image,omitempty"` // base64 JPEG for webcam canvas frames
}

// Notification is an interruptive message for the user.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
