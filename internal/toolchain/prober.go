package toolchain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// AudioDuration reports the encoded duration of an audio payload in seconds.
func (t *Toolchain) AudioDuration(ctx context.Context, audio []byte) (float64, error) {
	path, err := tempFile("clipforge-probe-*.bin", audio)
	if err != nil {
		return 0, err
	}
	defer removeQuietly(path)

	out, err := t.output(ctx, t.tools.FFprobe, nil,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe audio: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("probe audio: parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}
