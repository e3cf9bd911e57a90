package toolchain

import (
	"context"
	"encoding/json"
	"fmt"

	"clipforge/internal/media"
)

// transcriberPayload is the word-level JSON the transcription CLI emits.
type transcriberPayload struct {
	Words []media.Word `json:"words"`
}

// Transcribe extracts a mono 16kHz track from the input and feeds it to the
// transcription CLI, which emits word timing JSON on stdout.
func (t *Toolchain) Transcribe(ctx context.Context, audio []byte) ([]media.Word, error) {
	if t.tools.Transcriber == "" {
		return nil, fmt.Errorf("no transcriber binary configured")
	}

	src, err := tempFile("clipforge-audio-*.bin", audio)
	if err != nil {
		return nil, err
	}
	defer removeQuietly(src)

	wav := siblingPath(src, ".wav")
	defer removeQuietly(wav)
	if err := t.run(ctx, t.tools.FFmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", src,
		"-vn", "-ac", "1", "-ar", "16000",
		wav,
	); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	out, err := t.output(ctx, t.tools.Transcriber, nil, "--output-format", "json", wav)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	var payload transcriberPayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse transcriber output: %w", err)
	}
	return payload.Words, nil
}
