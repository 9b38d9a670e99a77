package frame

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gesture.report/internal/vision/camera"
)

// Bundle is one synchronized RGB-D capture: the encoded colour image, the
// registered depth image and the camera intrinsics, all sharing a single
// timestamp. Synchronization is the transport's responsibility; the pipeline
// only handles the colour/depth resolution mismatch.
type Bundle struct {
	ID          uuid.UUID
	SensorID    string
	Timestamp   time.Time
	Color       []byte // encoded image bytes (typically JPEG), passed through to detection
	ColorWidth  int
	ColorHeight int
	Depth       *DepthImage
	Intrinsics  camera.Intrinsics
}

// Validate checks the bundle is complete enough to process.
func (b *Bundle) Validate() error {
	if b == nil {
		return fmt.Errorf("nil frame bundle")
	}
	if b.Depth == nil {
		return fmt.Errorf("frame %s: missing depth image", b.ID)
	}
	if len(b.Color) == 0 {
		return fmt.Errorf("frame %s: missing colour image", b.ID)
	}
	if b.ColorWidth <= 0 || b.ColorHeight <= 0 {
		return fmt.Errorf("frame %s: invalid colour dimensions %dx%d", b.ID, b.ColorWidth, b.ColorHeight)
	}
	if err := b.Intrinsics.Validate(); err != nil {
		return fmt.Errorf("frame %s: %w", b.ID, err)
	}
	return nil
}
