package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"clipforge/internal/media"
)

// detectorPayload is the detection JSON the object-detection CLI emits for
// one frame.
type detectorPayload struct {
	Detections []media.Detection `json:"detections"`
}

// Detect feeds one raw frame to the detection CLI over stdin and parses the
// detection JSON it prints.
func (t *Toolchain) Detect(ctx context.Context, frame media.Frame) ([]media.Detection, error) {
	if t.tools.Detector == "" {
		return nil, fmt.Errorf("no detector binary configured")
	}

	out, err := t.output(ctx, t.tools.Detector, frame.Pixels,
		"--width", strconv.Itoa(frame.Width),
		"--height", strconv.Itoa(frame.Height),
		"--format", "rgb24",
	)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	var payload detectorPayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse detector output: %w", err)
	}
	return payload.Detections, nil
}
