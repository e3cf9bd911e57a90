package media

import "context"

// Transcriber is the speech-to-text contract. Implementations return raw
// words in time order; callers normalize via Normalize.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) ([]Word, error)
}

// Box is a detection bounding box in pixel coordinates.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is one object candidate from the detector contract.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"bbox"`
}

// Frame identifies one sampled video frame presented to the detector.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pixels []byte
}

// Detector is the object-detection contract used by the crop engine.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// TextGenerator produces text from a prompt (story and storyboard stages).
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator produces image bytes from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// VoiceSynthesizer produces audio bytes for narration text.
type VoiceSynthesizer interface {
	SynthesizeVoice(ctx context.Context, text, voiceID string) ([]byte, error)
}

// AudioProber reports the duration in seconds of an encoded audio asset.
// Scene re-timing depends on actual synthesized durations, which are only
// known after synthesis completes.
type AudioProber interface {
	AudioDuration(ctx context.Context, audio []byte) (float64, error)
}
