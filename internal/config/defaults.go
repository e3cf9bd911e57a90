package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration.
func Default() *Config {
	base := defaultBaseDir()
	return &Config{
		Paths: Paths{
			DataDir: filepath.Join(base, "data"),
			WorkDir: filepath.Join(base, "work"),
			LogDir:  filepath.Join(base, "logs"),
		},
		Storage: Storage{
			Backend:                  "local",
			Region:                   "us-east-1",
			UseSSL:                   true,
			UploadRetentionHours:     24,
			ProcessingRetentionHours: 6,
			ResultRetentionHours:     24 * 7,
		},
		Pipeline: Pipeline{
			Workers:            2,
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			TransientRetries:   1,
			SweepInterval:      60,
			StuckBaseMinutes:   20,
			StuckMinutesFactor: 0.5,
		},
		Crop: Crop{
			SampleInterval:      30,
			ConfidenceThreshold: 0.3,
			PersonWeight:        2.0,
			ObjectWeight:        1.0,
			MaxStepPx:           24,
			SmoothingFactor:     0.6,
		},
		Segmenter: Segmenter{
			MinSeconds:  30,
			MaxSeconds:  120,
			MaxSegments: 5,
		},
		Story: Story{
			MaxScenes:       14,
			CharLimitMin:    700,
			CharLimitMax:    800,
			MaxSceneSeconds: 8,
			TextCostCents:   0.2,
			ImageCostCents:  0.3,
			VoiceCostCents:  0.1,
		},
		Tools: Tools{
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
			Transcriber: "whisper-words",
			Detector:    "detect-objects",
		},
		Gateway: Gateway{
			TimeoutSeconds: 120,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clipforge"
	}
	return filepath.Join(home, ".local", "share", "clipforge")
}
