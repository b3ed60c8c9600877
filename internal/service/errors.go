package service

import (
	"errors"

	"github.com/t0m4t0ww/license-plate-recognition/internal/service/session"
)

var (
	ErrNoInput          = session.ErrNoInput
	ErrBusy             = session.ErrBusy
	ErrControlsDisabled = session.ErrControlsDisabled

	// ErrNoPlayback is returned by playback controls outside video mode.
	ErrNoPlayback = errors.New("no video is playing")
	// ErrNoCanvas is returned before the webcam mirror has drawn a frame.
	ErrNoCanvas = errors.New("no webcam frame yet")
)
