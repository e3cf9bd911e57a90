package toolchain

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/crop"
	"clipforge/internal/pipeline"
)

// CutClip extracts [start, end] from the source and applies the crop plan.
// A static plan becomes a plain crop filter; a moving plan is driven by an
// ffmpeg sendcmd script that repositions the crop window per frame.
func (t *Toolchain) CutClip(ctx context.Context, sourcePath string, start, end float64, plan []crop.Window, outPath string) error {
	if len(plan) == 0 {
		return fmt.Errorf("cut clip: empty crop plan")
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", sourcePath,
	}

	// The plan is indexed on the source timeline; -ss rebases the output to
	// zero, so only the cut's slice of the plan applies, shifted to zero.
	sub := clipPlan(plan, start, end)
	first := sub[0]
	if planIsStatic(sub) {
		args = append(args, "-vf", fmt.Sprintf("crop=%d:%d:%d:%d",
			int(first.W), int(first.H), int(first.X), int(first.Y)))
	} else {
		script := siblingPath(outPath, ".cmd")
		if err := writeSendcmdScript(script, sub); err != nil {
			return err
		}
		defer removeQuietly(script)
		args = append(args, "-vf", fmt.Sprintf("sendcmd=f=%s,crop=%d:%d:%d:%d",
			script, int(first.W), int(first.H), int(first.X), int(first.Y)))
	}

	args = append(args, "-c:a", "copy", outPath)
	if err := t.run(ctx, t.tools.FFmpeg, args...); err != nil {
		return fmt.Errorf("cut clip: %w", err)
	}
	return nil
}

// ComposeScenes renders each scene (still image looped over its narration)
// and concatenates the results into one video.
func (t *Toolchain) ComposeScenes(ctx context.Context, scenes []pipeline.ScenePaths, outPath string) error {
	if len(scenes) == 0 {
		return fmt.Errorf("compose: no scenes")
	}

	dir := filepath.Dir(outPath)
	var entries []string
	for i, scene := range scenes {
		segment := filepath.Join(dir, fmt.Sprintf("compose_%d.mp4", i))
		if err := t.run(ctx, t.tools.FFmpeg,
			"-hide_banner", "-loglevel", "error", "-y",
			"-loop", "1", "-i", scene.ImagePath,
			"-i", scene.AudioPath,
			"-t", fmt.Sprintf("%.3f", scene.Duration),
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			"-c:a", "aac", "-shortest",
			segment,
		); err != nil {
			return fmt.Errorf("compose scene %d: %w", i, err)
		}
		defer removeQuietly(segment)
		entries = append(entries, fmt.Sprintf("file '%s'", segment))
	}

	listPath := siblingPath(outPath, ".txt")
	if err := os.WriteFile(listPath, []byte(strings.Join(entries, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("compose: write concat list: %w", err)
	}
	defer removeQuietly(listPath)

	if err := t.run(ctx, t.tools.FFmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	); err != nil {
		return fmt.Errorf("compose: concat: %w", err)
	}
	return nil
}

// framesPerSecond is the normalized timeline crop plans are sampled on. The
// frame opener decodes at the same rate, so plan index / rate = seconds.
const framesPerSecond = 30.0

// clipPlan returns the plan entries covering [start, end) on the source
// timeline. A cut past the planned range holds the last known window.
func clipPlan(plan []crop.Window, start, end float64) []crop.Window {
	lo := int(start * framesPerSecond)
	hi := int(math.Ceil(end * framesPerSecond))
	if lo < 0 {
		lo = 0
	}
	if hi > len(plan) {
		hi = len(plan)
	}
	if lo >= len(plan) {
		lo = len(plan) - 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return plan[lo:hi]
}

func planIsStatic(plan []crop.Window) bool {
	first := plan[0]
	for _, w := range plan[1:] {
		if w.X != first.X || w.Y != first.Y {
			return false
		}
	}
	return true
}

// writeSendcmdScript emits one crop reposition command per frame where the
// window moves, keyed by frame timestamp at the plan's native frame rate.
func writeSendcmdScript(path string, plan []crop.Window) error {
	var b strings.Builder
	prev := crop.Window{X: -1, Y: -1}
	for i, w := range plan {
		if w.X == prev.X && w.Y == prev.Y {
			continue
		}
		ts := float64(i) / framesPerSecond
		fmt.Fprintf(&b, "%.4f crop x %d, crop y %d;\n", ts, int(w.X), int(w.Y))
		prev = w
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write sendcmd script: %w", err)
	}
	return nil
}
