// Package detect defines the keypoint detection contract and the HTTP client
// for the external detection service. The service is treated as an
// unreliable collaborator: a failed or slow call costs one frame of output,
// never the process.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/gesture.report/internal/vision/frame"
)

// Detection is one labelled 2D body-keypoint region. GroupID clusters all
// detections belonging to one candidate person within a single frame.
type Detection struct {
	GroupID     int
	Label       string
	Probability float64
	Box         frame.Rect
}

// Detector is the external keypoint detection service contract. Detect may
// fail per call; callers must treat an error as "no output for this frame".
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Wire types for the detection service JSON response.
type detectResponse struct {
	Detections []wireDetection `json:"detections"`
}

type wireDetection struct {
	GroupID     int      `json:"group_id"`
	Label       string   `json:"label"`
	Probability float64  `json:"probability"`
	Box         wireRect `json:"box"`
}

type wireRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// HTTPDetector calls a keypoint detection service over HTTP. The image is
// POSTed as-is and the service answers with JSON detections.
type HTTPDetector struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDetector builds a detector for the given endpoint. The timeout
// bounds the whole call including body read; it is the only temporal control
// the pipeline needs.
func NewHTTPDetector(endpoint string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Detect sends the encoded image to the detection service.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("building detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log line, then discard.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("detect service returned %d: %s", resp.StatusCode, msg)
	}

	var wire detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding detect response: %w", err)
	}

	out := make([]Detection, 0, len(wire.Detections))
	for _, w := range wire.Detections {
		out = append(out, Detection{
			GroupID:     w.GroupID,
			Label:       w.Label,
			Probability: w.Probability,
			Box:         frame.Rect{X: w.Box.X, Y: w.Box.Y, Width: w.Box.Width, Height: w.Box.Height},
		})
	}
	return out, nil
}
