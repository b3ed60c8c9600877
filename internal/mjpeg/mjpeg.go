// Package mjpeg reads and writes multipart/x-mixed-replace JPEG streams.
package mjpeg

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
)

// Boundary is the part separator used by Writer, matching the detection backend.
const Boundary = "frame"

// ContentType is the response Content-Type for a stream written by Writer.
var ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// ErrNotMultipart is returned for a Content-Type without a multipart boundary.
var ErrNotMultipart = errors.New("mjpeg: not a multipart stream")

// maxFrameSize bounds a single part so a broken stream cannot exhaust memory.
const maxFrameSize = 16 << 20

// Reader yields the JPEG parts of a stream.
type Reader struct {
	mr *multipart.Reader
}

// NewReader parses the boundary out of contentType.
func NewReader(body io.Reader, contentType string) (*Reader, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("mjpeg: %w", err)
	}
	boundary := params["boundary"]
	if !strings.HasPrefix(mediaType, "multipart/") || boundary == "" {
		return nil, ErrNotMultipart
	}
	return &Reader{mr: multipart.NewReader(body, strings.TrimPrefix(boundary, "--"))}, nil
}

// NextFrame returns the next part's bytes, or io.EOF at the end of the stream.
func (r *Reader) NextFrame() ([]byte, error) {
	part, err := r.mr.NextPart()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxFrameSize+1))
	if err != nil {
		return nil, fmt.Errorf("mjpeg: read part: %w", err)
	}
	if len(data) > maxFrameSize {
		return nil, fmt.Errorf("mjpeg: frame exceeds %d bytes", maxFrameSize)
	}
	return data, nil
}

// Writer emits JPEG frames as parts of a multipart/x-mixed-replace response.
type Writer struct {
	mw    *multipart.Writer
	flush func()
}

// NewWriter writes to w; flush, when non-nil, is called after each frame.
func NewWriter(w io.Writer, flush func()) *Writer {
	mw := multipart.NewWriter(w)
	mw.SetBoundary(Boundary)
	return &Writer{mw: mw, flush: flush}
}

// WriteFrame writes one JPEG part.
func (w *Writer) WriteFrame(jpeg []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", strconv.Itoa(len(jpeg)))
	part, err := w.mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(jpeg); err != nil {
		return err
	}
	if w.flush != nil {
		w.flush()
	}
	return nil
}

// Close writes the closing boundary.
func (w *Writer) Close() error {
	return w.mw.Close()
}
