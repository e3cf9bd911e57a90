package pipeline

import (
	"context"

	"clipforge/internal/crop"
	"clipforge/internal/media"
)

// ScenePaths locates one rendered scene's assets on the local work dir.
type ScenePaths struct {
	ImagePath string
	AudioPath string
	Duration  float64
}

// Editor is the video toolchain contract: cutting source clips with a crop
// plan applied, and composing rendered scenes into a final video.
type Editor interface {
	CutClip(ctx context.Context, sourcePath string, start, end float64, plan []crop.Window, outPath string) error
	ComposeScenes(ctx context.Context, scenes []ScenePaths, outPath string) error
}

// FrameOpener decodes a local video file into a frame source for the crop
// engine.
type FrameOpener interface {
	OpenFrames(ctx context.Context, path string) (crop.FrameSource, error)
}

// Contracts bundles every external capability a stage may call.
type Contracts struct {
	Transcriber media.Transcriber
	Detector    media.Detector
	Text        media.TextGenerator
	Image       media.ImageGenerator
	Voice       media.VoiceSynthesizer
	Prober      media.AudioProber
	Editor      Editor
	Frames      FrameOpener
}

// Resource names registered with the guard by the daemon. Stages acquire the
// name before leaning on the matching contract so model residency follows
// actual use.
const (
	ResourceTranscriber = "transcriber"
	ResourceDetector    = "detector"
	ResourceTextGen     = "text-generator"
	ResourceImageGen    = "image-generator"
	ResourceVoice       = "voice-synthesizer"
)
