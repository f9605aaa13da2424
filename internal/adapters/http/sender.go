package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"runtime"
	"strconv"

	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

const framesEndpoint = "/v1/ingest/frames"

// frameManifest describes the uploaded frame.
type frameManifest struct {
	ID        string `json:"id"`
	Sequence  uint64 `json:"seq"`
	Size      int    `json:"size"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Timestamp int64  `json:"timestamp_us"`
}

// FrameSender implements ports.FrameSender using HTTP.
type FrameSender struct {
	client ports.HTTPClient
	logger ports.Logger
}

// NewFrameSender creates a new HTTP frame sender.
func NewFrameSender(client ports.HTTPClient, logger ports.Logger) *FrameSender {
	return &FrameSender{
		client: client,
		logger: logger,
	}
}

// Send uploads one frame to the ingest service as multipart form data.
func (s *FrameSender) Send(ctx context.Context, frame domain.FrameView, metadata ports.SendMetadata) error {
	if !frame.Valid() {
		return nil
	}

	manifestJSON, err := json.Marshal(frameManifest{
		ID:        metadata.FrameID,
		Sequence:  metadata.Sequence,
		Size:      frame.Size(),
		Width:     frame.Width,
		Height:    frame.Height,
		Timestamp: frame.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	// Build multipart request body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	manifestPart, err := writer.CreateFormField("manifest")
	if err != nil {
		return fmt.Errorf("create manifest field: %w", err)
	}
	if _, err := manifestPart.Write(manifestJSON); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	framePart, err := writer.CreateFormFile("frame", metadata.FrameID+".jpg")
	if err != nil {
		return fmt.Errorf("create frame field: %w", err)
	}
	if _, err := framePart.Write(frame.Data); err != nil {
		return fmt.Errorf("write frame data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart: %w", err)
	}

	url := metadata.ServiceURL + framesEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	osArch := metadata.OSArch
	if osArch == "" {
		osArch = runtime.GOOS + "/" + runtime.GOARCH
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Agent-Hostname", metadata.Hostname)
	req.Header.Set("X-Agent-OSArch", osArch)
	req.Header.Set("X-Frame-Id", metadata.FrameID)
	req.Header.Set("X-Frame-Seq", strconv.FormatUint(metadata.Sequence, 10))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
