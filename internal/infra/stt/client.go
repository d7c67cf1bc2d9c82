package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// MaxBlobBytes is the upload ceiling; larger blobs are rejected before any
// network I/O.
const MaxBlobBytes = 10 << 20

// Client uploads finalized recordings to the transcription backend.
// Upload failures are terminal for the attempt: transcription is never
// retried automatically.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type sttResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Transcribe posts the blob as one multipart field named "audio" and
// returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, blob domain.AudioBlob) (string, error) {
	if blob.Size() == 0 {
		return "", domain.NewCaptureError(domain.ErrEmptyRecording,
			fmt.Errorf("refusing to upload empty recording"))
	}
	if blob.Size() > MaxBlobBytes {
		return "", domain.NewCaptureError(domain.ErrOversizedRecording,
			fmt.Errorf("recording is %d bytes, limit %d", blob.Size(), MaxBlobBytes))
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := "recording." + ExtensionForMime(blob.MimeType)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err = part.Write(blob.Data); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stt", body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("uploading recording",
		"bytes", blob.Size(), "filename", filename)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewCaptureError(domain.ErrNetworkFailure,
			fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewCaptureError(domain.ErrNetworkFailure, backendError(resp))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", domain.NewCaptureError(domain.ErrNetworkFailure,
			fmt.Errorf("decoding response: %w", err))
	}
	if !result.Success {
		return "", domain.NewCaptureError(domain.ErrNetworkFailure,
			fmt.Errorf("backend rejected recording: %s", firstNonEmpty(result.Details, result.Error, "unknown error")))
	}

	return result.Text, nil
}

// backendError prefers the response's details/error fields, falling back
// to a generic status message.
func backendError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if msg := firstNonEmpty(payload.Details, payload.Error); msg != "" {
			return fmt.Errorf("stt backend error %d: %s", resp.StatusCode, msg)
		}
	}
	return fmt.Errorf("stt backend error %d", resp.StatusCode)
}

// ExtensionForMime derives the upload filename extension from the blob's
// MIME type, defaulting to webm for anything unrecognized.
func ExtensionForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return "webm"
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	case strings.Contains(mimeType, "ogg"):
		return "ogg"
	case strings.Contains(mimeType, "wav"):
		return "wav"
	default:
		return "webm"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
