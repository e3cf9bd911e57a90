package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
)

// Toolchain implements the pipeline's media contracts by shelling out to
// external binaries: ffmpeg/ffprobe for editing and probing, plus word-level
// transcription and object-detection CLIs.
type Toolchain struct {
	tools config.Tools

	// commandOutput overrides command execution in tests.
	commandOutput func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)
}

// New builds a toolchain from the configured binary names.
func New(tools config.Tools) *Toolchain {
	if tools.FFmpeg == "" {
		tools.FFmpeg = "ffmpeg"
	}
	if tools.FFprobe == "" {
		tools.FFprobe = "ffprobe"
	}
	return &Toolchain{tools: tools}
}

// WithCommandOutput sets a custom command runner (for testing).
func (t *Toolchain) WithCommandOutput(fn func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)) {
	t.commandOutput = fn
}

// output runs a command and returns stdout. Stderr is folded into the error.
func (t *Toolchain) output(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	if t.commandOutput != nil {
		return t.commandOutput(ctx, name, stdin, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if stdin != nil {
		cmd.Stdin = strings.NewReader(string(stdin))
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// run executes a command where only success matters.
func (t *Toolchain) run(ctx context.Context, name string, args ...string) error {
	if t.commandOutput != nil {
		_, err := t.commandOutput(ctx, name, nil, args...)
		return err
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// tempFile writes payload next to other scratch data and returns its path.
// The caller removes it.
func tempFile(pattern string, payload []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func removeQuietly(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func siblingPath(path, suffix string) string {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, base+suffix)
}
