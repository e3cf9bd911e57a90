package crop

import (
	"context"
	"errors"
	"math"
	"testing"

	"clipforge/internal/media"
	"clipforge/internal/services"
)

type fakeSource struct {
	width  int
	height int
	frames int
	err    error
}

func (s fakeSource) Dimensions() (int, int) { return s.width, s.height }
func (s fakeSource) FrameCount() int        { return s.frames }

func (s fakeSource) Frame(_ context.Context, index int) (media.Frame, error) {
	if s.err != nil {
		return media.Frame{}, s.err
	}
	return media.Frame{Index: index, Width: s.width, Height: s.height}, nil
}

type fakeDetector struct {
	byFrame map[int][]media.Detection
	err     error
}

func (d fakeDetector) Detect(_ context.Context, frame media.Frame) ([]media.Detection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.byFrame[frame.Index], nil
}

func testConfig() Config {
	return Config{
		AspectW:             9,
		AspectH:             16,
		SampleInterval:      30,
		ConfidenceThreshold: 0.3,
		PersonWeight:        2.0,
		ObjectWeight:        1.0,
		MaxStepPx:           24,
		SmoothingFactor:     0.6,
	}
}

func TestPlanNoDetectionsIsCenteredAndStatic(t *testing.T) {
	src := fakeSource{width: 1920, height: 1080, frames: 120}
	engine := New(testConfig(), fakeDetector{})

	plan, err := engine.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan) != 120 {
		t.Fatalf("expected 120 windows, got %d", len(plan))
	}

	wantW := 1080.0 * 9 / 16
	wantX := (1920.0 - wantW) / 2
	for i, win := range plan {
		if math.Abs(win.X-wantX) > 1e-9 || win.Y != 0 {
			t.Fatalf("frame %d: window %+v not centered (want x=%.2f y=0)", i, win, wantX)
		}
		if i > 0 && (plan[i].X != plan[i-1].X || plan[i].Y != plan[i-1].Y) {
			t.Fatalf("frame %d: centered plan moved", i)
		}
	}
}

func TestPlanTracksWeightedSubject(t *testing.T) {
	src := fakeSource{width: 1920, height: 1080, frames: 61}
	det := fakeDetector{byFrame: map[int][]media.Detection{}}
	// A confident person on the right edge at every sampled frame.
	for _, idx := range []int{0, 30, 60} {
		det.byFrame[idx] = []media.Detection{
			{Class: "person", Confidence: 0.9, Box: media.Box{X: 1500, Y: 300, W: 200, H: 400}},
			{Class: "chair", Confidence: 0.8, Box: media.Box{X: 100, Y: 600, W: 50, H: 50}},
		}
	}
	engine := New(testConfig(), det)

	plan, err := engine.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	center := (1920.0 - plan[0].W) / 2
	if plan[0].X <= center {
		t.Fatalf("expected window right of center, got x=%.1f center=%.1f", plan[0].X, center)
	}
	last := plan[len(plan)-1]
	if last.X+last.W > 1920+1e-9 || last.X < 0 {
		t.Fatalf("window out of bounds: %+v", last)
	}
}

func TestPlanTracksMotionWithUnsetSmoothing(t *testing.T) {
	src := fakeSource{width: 1920, height: 1080, frames: 61}
	det := fakeDetector{byFrame: map[int][]media.Detection{
		0:  {{Class: "person", Confidence: 0.9, Box: media.Box{X: 100, Y: 300, W: 200, H: 400}}},
		30: {{Class: "person", Confidence: 0.9, Box: media.Box{X: 900, Y: 300, W: 200, H: 400}}},
		60: {{Class: "person", Confidence: 0.9, Box: media.Box{X: 1600, Y: 300, W: 200, H: 400}}},
	}}

	// A config that never set the smoothing factor still has to follow the
	// subject instead of freezing on the first keyframe.
	cfg := testConfig()
	cfg.SmoothingFactor = 0
	engine := New(cfg, det)

	plan, err := engine.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if last := plan[len(plan)-1]; last.X <= plan[0].X {
		t.Fatalf("plan never moved: first x=%.1f last x=%.1f", plan[0].X, last.X)
	}
}

func TestPlanStepNeverExceedsMax(t *testing.T) {
	src := fakeSource{width: 1920, height: 1080, frames: 91}
	det := fakeDetector{byFrame: map[int][]media.Detection{
		0:  {{Class: "person", Confidence: 0.9, Box: media.Box{X: 0, Y: 0, W: 200, H: 400}}},
		30: {{Class: "person", Confidence: 0.9, Box: media.Box{X: 1700, Y: 600, W: 200, H: 400}}},
		60: {{Class: "person", Confidence: 0.9, Box: media.Box{X: 0, Y: 0, W: 200, H: 400}}},
	}}
	engine := New(testConfig(), det)

	plan, err := engine.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	for i := 1; i < len(plan); i++ {
		dx := plan[i].X - plan[i-1].X
		dy := plan[i].Y - plan[i-1].Y
		if step := math.Hypot(dx, dy); step > 24+1e-9 {
			t.Fatalf("frame %d: step %.2fpx exceeds limit", i, step)
		}
	}
}

func TestPlanBelowThresholdFallsBackToCenter(t *testing.T) {
	src := fakeSource{width: 1280, height: 720, frames: 30}
	det := fakeDetector{byFrame: map[int][]media.Detection{
		0: {{Class: "person", Confidence: 0.1, Box: media.Box{X: 1000, Y: 100, W: 200, H: 400}}},
	}}
	engine := New(testConfig(), det)

	plan, err := engine.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	wantX := (1280.0 - plan[0].W) / 2
	if math.Abs(plan[0].X-wantX) > 1e-9 {
		t.Fatalf("expected centered window, got x=%.2f want %.2f", plan[0].X, wantX)
	}
}

func TestPlanDetectorErrorIsTransient(t *testing.T) {
	src := fakeSource{width: 1920, height: 1080, frames: 10}
	engine := New(testConfig(), fakeDetector{err: errors.New("model not loaded")})

	_, err := engine.Plan(context.Background(), src)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestPlanRejectsEmptySource(t *testing.T) {
	engine := New(testConfig(), fakeDetector{})
	_, err := engine.Plan(context.Background(), fakeSource{width: 1920, height: 1080, frames: 0})
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal classification, got %v", err)
	}
}
