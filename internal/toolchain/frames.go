package toolchain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/crop"
	"clipforge/internal/media"
)

// OpenFrames probes the video's geometry and exposes frames decoded on the
// normalized timeline used by crop plans.
func (t *Toolchain) OpenFrames(ctx context.Context, path string) (crop.FrameSource, error) {
	out, err := t.output(ctx, t.tools.FFprobe, nil,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "csv=p=0:nk=1",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}

	fields := strings.Fields(strings.ReplaceAll(strings.TrimSpace(string(out)), ",", " "))
	if len(fields) < 3 {
		return nil, fmt.Errorf("probe video: unexpected output %q", strings.TrimSpace(string(out)))
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("probe video: parse width: %w", err)
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("probe video: parse height: %w", err)
	}
	duration, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("probe video: parse duration: %w", err)
	}

	return &frameSource{
		tc:     t,
		path:   path,
		width:  width,
		height: height,
		frames: int(duration * framesPerSecond),
	}, nil
}

type frameSource struct {
	tc     *Toolchain
	path   string
	width  int
	height int
	frames int
}

func (s *frameSource) Dimensions() (int, int) { return s.width, s.height }
func (s *frameSource) FrameCount() int        { return s.frames }

// Frame decodes the frame at the given normalized-timeline index as raw
// rgb24 pixels.
func (s *frameSource) Frame(ctx context.Context, index int) (media.Frame, error) {
	ts := float64(index) / framesPerSecond
	out, err := s.tc.output(ctx, s.tc.tools.FFmpeg, nil,
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.4f", ts),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"pipe:1",
	)
	if err != nil {
		return media.Frame{}, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return media.Frame{Index: index, Width: s.width, Height: s.height, Pixels: out}, nil
}
