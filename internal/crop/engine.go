package crop

import (
	"context"
	"fmt"
	"math"
	"strings"

	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Config tunes the adaptive crop engine.
type Config struct {
	AspectW             int
	AspectH             int
	SampleInterval      int
	ConfidenceThreshold float64
	PersonWeight        float64
	ObjectWeight        float64
	MaxStepPx           float64
	SmoothingFactor     float64
}

// Window is the crop rectangle for a single output frame, in pixels.
type Window struct {
	X float64
	Y float64
	W float64
	H float64
}

// FrameSource exposes decoded frames of a clip to the engine.
type FrameSource interface {
	Dimensions() (width, height int)
	FrameCount() int
	Frame(ctx context.Context, index int) (media.Frame, error)
}

// Engine computes a stable, subject-aware crop window per output frame.
type Engine struct {
	cfg Config
	det media.Detector
}

// New constructs an engine around a detector contract.
func New(cfg Config, det media.Detector) *Engine {
	if cfg.SampleInterval < 1 {
		cfg.SampleInterval = 1
	}
	if cfg.PersonWeight <= 0 {
		cfg.PersonWeight = 2.0
	}
	if cfg.ObjectWeight <= 0 {
		cfg.ObjectWeight = 1.0
	}
	if cfg.MaxStepPx <= 0 {
		cfg.MaxStepPx = 24
	}
	if cfg.SmoothingFactor <= 0 || cfg.SmoothingFactor > 1 {
		cfg.SmoothingFactor = 0.6
	}
	return &Engine{cfg: cfg, det: det}
}

type keyframe struct {
	index  int
	window Window
}

// Plan returns one crop window per source frame. Frames between detector
// samples are interpolated so no single-frame jump exceeds MaxStepPx. A clip
// with no qualifying detections yields a constant centered plan; that is the
// designed fallback, not an error.
func (e *Engine) Plan(ctx context.Context, src FrameSource) ([]Window, error) {
	width, height := src.Dimensions()
	total := src.FrameCount()
	if width <= 0 || height <= 0 || total <= 0 {
		return nil, services.Wrap(services.ErrFatal, "crop", "plan",
			fmt.Sprintf("unusable source geometry %dx%d with %d frames", width, height, total), nil)
	}

	cropW, cropH := targetSize(width, height, e.cfg.AspectW, e.cfg.AspectH)
	centered := Window{
		X: (float64(width) - cropW) / 2,
		Y: (float64(height) - cropH) / 2,
		W: cropW,
		H: cropH,
	}

	keyframes, err := e.sampleKeyframes(ctx, src, width, height, cropW, cropH, centered)
	if err != nil {
		return nil, err
	}

	plan := make([]Window, total)
	e.fillPlan(plan, keyframes, centered)
	return plan, nil
}

func (e *Engine) sampleKeyframes(ctx context.Context, src FrameSource, width, height int, cropW, cropH float64, centered Window) ([]keyframe, error) {
	var out []keyframe
	var current Window
	first := true

	total := src.FrameCount()
	for idx := 0; idx < total; idx += e.cfg.SampleInterval {
		frame, err := src.Frame(ctx, idx)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "crop", "read frame",
				fmt.Sprintf("frame %d", idx), err)
		}
		detections, err := e.det.Detect(ctx, frame)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "crop", "detect",
				fmt.Sprintf("frame %d", idx), err)
		}

		target := e.windowFor(detections, width, height, cropW, cropH, centered)
		if first {
			current = target
			first = false
		} else {
			// Bounded exponential smoothing between sampled keyframes.
			alpha := e.cfg.SmoothingFactor
			current.X += alpha * (target.X - current.X)
			current.Y += alpha * (target.Y - current.Y)
		}
		out = append(out, keyframe{index: idx, window: current})
	}
	return out, nil
}

// windowFor derives the crop window for one sampled frame from its
// detections. Detections below the confidence threshold are discarded; with
// nothing left the centered window is the answer.
func (e *Engine) windowFor(detections []media.Detection, width, height int, cropW, cropH float64, centered Window) Window {
	var sumW, sumX, sumY float64
	for _, d := range detections {
		if d.Confidence < e.cfg.ConfidenceThreshold {
			continue
		}
		classWeight := e.cfg.ObjectWeight
		if strings.EqualFold(d.Class, "person") {
			classWeight = e.cfg.PersonWeight
		}
		area := d.Box.W * d.Box.H
		weight := d.Confidence * area * classWeight
		if weight <= 0 {
			continue
		}
		sumW += weight
		sumX += weight * (d.Box.X + d.Box.W/2)
		sumY += weight * (d.Box.Y + d.Box.H/2)
	}
	if sumW == 0 {
		return centered
	}

	cx := sumX / sumW
	cy := sumY / sumW
	win := Window{X: cx - cropW/2, Y: cy - cropH/2, W: cropW, H: cropH}
	win.X = clampf(win.X, 0, float64(width)-cropW)
	win.Y = clampf(win.Y, 0, float64(height)-cropH)
	return win
}

// fillPlan interpolates between keyframes and clamps each per-frame move so
// the window never jumps more than MaxStepPx between adjacent frames.
func (e *Engine) fillPlan(plan []Window, keyframes []keyframe, centered Window) {
	if len(keyframes) == 0 {
		for i := range plan {
			plan[i] = centered
		}
		return
	}

	current := keyframes[0].window
	next := 0
	for i := range plan {
		for next+1 < len(keyframes) && keyframes[next+1].index <= i {
			next++
		}
		target := keyframes[next].window
		if next+1 < len(keyframes) {
			a := keyframes[next]
			b := keyframes[next+1]
			span := float64(b.index - a.index)
			if span > 0 && i >= a.index {
				t := float64(i-a.index) / span
				target = Window{
					X: a.window.X + t*(b.window.X-a.window.X),
					Y: a.window.Y + t*(b.window.Y-a.window.Y),
					W: a.window.W,
					H: a.window.H,
				}
			}
		}
		current = stepToward(current, target, e.cfg.MaxStepPx)
		plan[i] = current
	}
}

// stepToward moves from prev toward target without exceeding maxStep in
// Euclidean distance.
func stepToward(prev, target Window, maxStep float64) Window {
	dx := target.X - prev.X
	dy := target.Y - prev.Y
	dist := math.Hypot(dx, dy)
	if dist <= maxStep || dist == 0 {
		return target
	}
	scale := maxStep / dist
	return Window{X: prev.X + dx*scale, Y: prev.Y + dy*scale, W: target.W, H: target.H}
}

// targetSize computes the largest crop of the requested aspect ratio that
// fits the source frame.
func targetSize(width, height, aspectW, aspectH int) (float64, float64) {
	if aspectW <= 0 || aspectH <= 0 {
		return float64(width), float64(height)
	}
	targetAspect := float64(aspectW) / float64(aspectH)
	currentAspect := float64(width) / float64(height)
	if currentAspect > targetAspect {
		// Source is wider than the target: crop the sides.
		return float64(height) * targetAspect, float64(height)
	}
	return float64(width), float64(width) / targetAspect
}

func clampf(x, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
