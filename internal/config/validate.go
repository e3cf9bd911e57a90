package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants before the daemon starts.
func (c *Config) Validate() error {
	var problems []string

	switch strings.TrimSpace(c.Storage.Backend) {
	case "local":
	case "s3":
		if c.Storage.Endpoint == "" {
			problems = append(problems, "storage.endpoint is required for the s3 backend")
		}
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend must be \"local\" or \"s3\", got %q", c.Storage.Backend))
	}

	if c.Pipeline.Workers < 1 {
		problems = append(problems, "pipeline.workers must be at least 1")
	}
	if c.Pipeline.TransientRetries < 0 {
		problems = append(problems, "pipeline.transient_retries must not be negative")
	}
	if c.Pipeline.StuckBaseMinutes < 1 {
		problems = append(problems, "pipeline.stuck_base_minutes must be at least 1")
	}
	if c.Pipeline.StuckMinutesFactor < 0 {
		problems = append(problems, "pipeline.stuck_minutes_factor must not be negative")
	}

	if c.Segmenter.MinSeconds <= 0 {
		problems = append(problems, "segmenter.min_seconds must be positive")
	}
	if c.Segmenter.MaxSeconds <= c.Segmenter.MinSeconds {
		problems = append(problems, "segmenter.max_seconds must exceed segmenter.min_seconds")
	}
	if c.Segmenter.MaxSegments < 1 {
		problems = append(problems, "segmenter.max_segments must be at least 1")
	}

	if c.Crop.SampleInterval < 1 {
		problems = append(problems, "crop.sample_interval must be at least 1")
	}
	if c.Crop.ConfidenceThreshold < 0 || c.Crop.ConfidenceThreshold > 1 {
		problems = append(problems, "crop.confidence_threshold must be within [0, 1]")
	}
	if c.Crop.MaxStepPx <= 0 {
		problems = append(problems, "crop.max_step_px must be positive")
	}
	if c.Crop.SmoothingFactor < 0 || c.Crop.SmoothingFactor > 1 {
		problems = append(problems, "crop.smoothing_factor must be within [0, 1]")
	}

	if c.Story.MaxScenes < 1 {
		problems = append(problems, "story.max_scenes must be at least 1")
	}
	if c.Story.CharLimitMax < c.Story.CharLimitMin {
		problems = append(problems, "story.char_limit_max must not be below story.char_limit_min")
	}

	if c.Gateway.TimeoutSeconds < 0 {
		problems = append(problems, "gateway.timeout_seconds must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
