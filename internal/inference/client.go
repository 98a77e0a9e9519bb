// Package inference relays uploaded images to the external deepfake-detection
// model endpoint. The relay is a single synchronous call: no retries, no
// partial results. A failed attempt is terminal for the originating request.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/deepfakex/server/internal/config"
)

// Verdict is the parsed answer from the inference endpoint. Raw preserves the
// full response payload verbatim for the analysis metadata bag.
type Verdict struct {
	Prediction string
	Confidence float64
	Raw        map[string]any
}

// Client issues detection calls against a configured endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a relay client. A zero timeout keeps the transport default.
func NewClient(cfg config.InferenceConfig) *Client {
	return &Client{
		endpoint:   cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Detect sends the image as multipart field "image" and parses the verdict.
func (c *Client) Detect(ctx context.Context, image io.Reader, filename string) (Verdict, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return Verdict{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return Verdict{}, fmt.Errorf("copy image into body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Verdict{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Verdict{}, fmt.Errorf("%w: endpoint returned status %d", ErrInference, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Verdict{}, fmt.Errorf("%w: decode response: %v", ErrInference, err)
	}

	if status, _ := raw["status"].(string); status == "error" {
		return Verdict{}, fmt.Errorf("%w: endpoint reported an error", ErrInference)
	}

	verdict := Verdict{Raw: raw}
	verdict.Prediction, _ = raw["prediction"].(string)
	if confidence, ok := raw["confidence"].(float64); ok {
		verdict.Confidence = confidence
	}

	return verdict, nil
}
