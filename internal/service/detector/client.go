package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/dto"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
)

const (
	DetectPath = "/detect"
	WebcamPath = "/webcam"

	// ImageField is the multipart field the backend reads the image from.
	ImageField = "image"

	maxErrorBody = 4 << 10
)

// APIError is a non-2xx answer from the detection backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("detector returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("detector returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the external plate detection service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for cfg.DetectorURL. Requests time out after
// cfg.DetectTimeout; the webcam stream uses a separate client without a timeout.
func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.DetectorURL, "/"),
		httpClient: &http.Client{Timeout: cfg.DetectTimeout()},
		logger:     logger,
	}
}

// BaseURL returns the backend address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebcamURL is the backend's MJPEG relay of the live camera.
func (c *Client) WebcamURL() string {
	return c.baseURL + WebcamPath
}

// Detect uploads one image and returns the recognition result.
func (c *Client) Detect(ctx context.Context, image io.Reader, filename string) (*model.Result, error) {
	body, contentType, err := buildImageForm(image, filename)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+DetectPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}

	var payload dto.DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}

	result := payload.ToResult()
	c.logger.Info("Detect %s: %d plate(s) in %v", requestID, len(result.Gallery), time.Since(start).Round(time.Millisecond))
	return result, nil
}

// OpenWebcam starts the long-lived webcam stream. The caller closes the body.
func (c *Client) OpenWebcam(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.WebcamURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build webcam request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webcam request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return resp, nil
}

func buildImageForm(image io.Reader, filename string) (*bytes.Buffer, string, error) {
	if filename == "" {
		filename = "image.jpg"
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(ImageField, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", fmt.Errorf("failed to copy image into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsAPIError reports whether err came from a backend status code.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
